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


// Package cloud reads and writes files held in blob storage.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// providers are the accepted storage providers.
var providers = map[string]bool{"file": true, "gs": true, "s3": true}

// IsURL reports whether location is a blob storage location rather than a
// local path.
func IsURL(location string) bool {
	u, err := url.Parse(location)
	return err == nil && providers[u.Scheme]
}

// Split splits a blob location into the name of its bucket and its key
// within the bucket. For the "file" provider the bucket is the directory
// holding the file.
func Split(location string) (bucketName, key string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("cloud: parsing location: %v", err)
	}
	switch u.Scheme {
	case "file":
		p := filepath.FromSlash(u.Host + u.Path)
		return "file://" + filepath.ToSlash(filepath.Dir(p)), filepath.Base(p), nil
	case "gs", "s3":
		key := strings.TrimLeft(path.Clean("/"+u.Path), "/")
		if u.Host == "" || key == "" {
			return "", "", fmt.Errorf("cloud: location %s must have the form %s://bucket/key", location, u.Scheme)
		}
		return u.Scheme + "://" + u.Host, key, nil
	}
	return "", "", fmt.Errorf("cloud: invalid provider %q in %s", u.Scheme, location)
}

// OpenBucket returns the blob storage bucket specified by bucketName,
// where bucketName must be in the format 'provider://name' where provider
// is the name of the storage provider and name is the name of the bucket.
// The currently accepted storage providers are "file" for the local filesystem
// (where name is a directory), "gs" for Google Cloud Storage, and "s3" for AWS S3.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("cloud.OpenBucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		return fileblob.OpenBucket(filepath.FromSlash(u.Host+u.Path), nil)
	case "gs":
		return gsBucket(ctx, u.Hostname())
	case "s3":
		return s3Bucket(ctx, u.Hostname())
	default:
		return nil, fmt.Errorf("cloud.OpenBucket: invalid provider %s", u.Scheme)
	}
}

func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	// See here for information on credentials:
	// https://cloud.google.com/docs/authentication/getting-started
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	c, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, c, name, nil)
}

// s3Bucket opens an s3 storage bucket. It assumes the following
// environment variables are set: AWS_REGION, AWS_ACCESS_KEY_ID, and
// AWS_SECRET_ACCESS_KEY.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}
	c := &aws.Config{
		Region:      aws.String(region),
		Credentials: credentials.NewEnvCredentials(),
	}
	s, err := session.NewSession(c)
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, s, name, nil)
}
