/*
Copyright © 2024 the cfnc authors.
This file is part of cfnc.

cfnc is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

cfnc is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with cfnc.  If not, see <http://www.gnu.org/licenses/>.
*/


// Command cfnc reads, inspects and rewrites CF-netCDF files.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/cfnc/cfncutil"
)

func main() {
	if err := cfncutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
