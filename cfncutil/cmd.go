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


// Package cfncutil contains the command-line interface to cfnc.
package cfncutil

import (
	"fmt"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/cfnc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to cfnc.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel sets the logging verbosity: one of panic, fatal,
              error, warn, info or debug.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Substitutions",
			usage: `
              Substitutions is the path to a TOML file of substitutions
              for ${name} tokens in aggregation fragment locations,
              for example 'base = "s3://bucket/cmip"'. These override the
              substitutions stored in aggregation files.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "FragmentCache",
			usage: `
              FragmentCache is the number of aggregation fragments of each
              aggregated variable to keep in memory after they are read.
              Zero disables caching.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Format",
			usage: `
              Format is the format of the output file: NETCDF3_CLASSIC or
              NETCDF3_64BIT_OFFSET.`,
			shorthand:  "f",
			defaultVal: "NETCDF3_CLASSIC",
			flagsets:   []*pflag.FlagSet{rewriteCmd.Flags()},
		},
		{
			name: "ToMemory",
			usage: `
              ToMemory reads all data into memory, fetching every
              aggregation fragment, before the output file is written. The
              output then holds the data instead of aggregation variables.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{rewriteCmd.Flags()},
		},
		{
			name: "GlobalAttributes",
			usage: `
              GlobalAttributes lists field properties to write as global
              attributes, such as 'institution,source'.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{rewriteCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CFNC")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(describeCmd)
	Root.AddCommand(rewriteCmd)
	Root.AddCommand(fragmentsCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the logging level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("cfnc: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("cfnc: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "cfnc",
	Short: "Read, inspect and rewrite CF-netCDF files.",
	Long: `cfnc reads and writes CF-netCDF files, including compressed
(ragged, gathered and subsampled) data and CFA aggregations.
Use the subcommands specified below to access the functionality.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CFNC_var' where 'var' is the
name of the variable to be set. Paths are allowed to contain environment
variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of cfnc.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cfnc v%s\n", cfnc.Version)
	},
	DisableAutoGenTag: true,
}

var describeCmd = &cobra.Command{
	Use:   "describe FILE",
	Short: "Describe the fields in a file.",
	Long: `describe prints the fields stored in a netCDF file together with
their axes, coordinates and other metadata constructs. FILE may be a local
path or a blob storage location such as s3://bucket/key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := read(Cfg, args[0])
		if err != nil {
			return err
		}
		for _, f := range fields {
			describe(cmd.OutOrStdout(), f)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var rewriteCmd = &cobra.Command{
	Use:   "rewrite INPUT OUTPUT",
	Short: "Read the fields of a file and write them to another.",
	Long: `rewrite reads the fields stored in INPUT and writes them to OUTPUT.
Compressed data keep their encoding. Either file may be a blob storage
location.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return rewrite(Cfg, args[0], args[1])
	},
	DisableAutoGenTag: true,
}

var fragmentsCmd = &cobra.Command{
	Use:   "fragments FILE",
	Short: "List the fragment files of aggregated variables.",
	Long: `fragments prints, for each field with aggregated data, the resolved
locations of the files holding its fragments.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := read(Cfg, args[0])
		if err != nil {
			return err
		}
		for _, f := range fields {
			a, ok := f.Array.(*cfnc.Aggregated)
			if !ok {
				continue
			}
			for _, l := range a.Filenames() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", f.NCVarName, l)
			}
		}
		return nil
	},
	DisableAutoGenTag: true,
}
