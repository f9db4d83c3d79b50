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


package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
)

// ReadBlob reads the blob at location, which has the form
// 'provider://bucket/key'.
func ReadBlob(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()
	return readBlob(ctx, bucket, key)
}

// WriteBlob writes data to the blob at location, replacing any existing
// blob.
func WriteBlob(ctx context.Context, location string, data []byte) error {
	bucket, key, err := open(ctx, location)
	if err != nil {
		return err
	}
	defer bucket.Close()
	return writeBlob(ctx, bucket, key, data)
}

// List returns the locations of the blobs whose locations start with
// prefix.
func List(ctx context.Context, prefix string) ([]string, error) {
	bucketName, key, err := Split(prefix)
	if err != nil {
		return nil, err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()
	var o []string
	iter := bucket.List(&blob.ListOptions{Prefix: key})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cloud: listing blobs with prefix %s: %v", prefix, err)
		}
		if !obj.IsDir {
			o = append(o, bucketName+"/"+obj.Key)
		}
	}
	return o, nil
}

func open(ctx context.Context, location string) (*blob.Bucket, string, error) {
	bucketName, key, err := Split(location)
	if err != nil {
		return nil, "", err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return nil, "", err
	}
	return bucket, key, nil
}

// readBlob reads the given blob from the given bucket.
func readBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	defer r.Close()
	_, err = io.Copy(&b, r)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob key %s: %v", key, err)
	}
	return b.Bytes(), nil
}

// writeBlob writes the given data to the given bucket.
func writeBlob(ctx context.Context, bucket *blob.Bucket, key string, data []byte) error {
	b := bytes.NewBuffer(data)
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	_, err = io.Copy(w, b)
	if err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", key, err)
	}
	return nil
}
