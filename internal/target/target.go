// Package target opens download destinations for writing.
//
// A destination is either a local path or, when it carries a URL scheme
// registered with gocloud.dev/blob (mem://, file://, s3://, gs://, ...), an
// object in a bucket. Local destinations get their parent directories created
// and are always truncated; downloads are never appended to.
package target

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Operations reported in Error.
const (
	OpCreate = "create" // creating the parent directory or bucket
	OpOpen   = "open"   // opening the file or object for writing
)

// Error records which step of opening a destination failed.
type Error struct {
	Op   string
	Dest string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("target: %s %s: %v", e.Op, e.Dest, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Open opens dest for writing, replacing any existing content.
// Closing the returned writer commits the data.
func Open(ctx context.Context, dest string) (io.WriteCloser, error) {
	if IsBucketURL(dest) {
		return openBucketURL(ctx, dest)
	}
	return OpenFile(dest)
}

// OpenFile creates the parent directories of path and opens it truncated.
func OpenFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Op: OpCreate, Dest: path, Err: err}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &Error{Op: OpOpen, Dest: path, Err: err}
	}
	return f, nil
}

// OpenObject opens key in an already opened bucket. The bucket stays open
// after the writer is closed.
func OpenObject(ctx context.Context, bucket *blob.Bucket, key string) (io.WriteCloser, error) {
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return nil, &Error{Op: OpOpen, Dest: key, Err: describe(err)}
	}
	return w, nil
}

// IsBucketURL reports whether dest names a bucket object rather than a local path.
// Single-letter schemes are treated as Windows drive letters, and a scheme
// without "//" (file:setup.exe) is a relative path.
func IsBucketURL(dest string) bool {
	u, err := url.Parse(dest)
	if err != nil || len(u.Scheme) < 2 || u.Opaque != "" {
		return false
	}
	if !strings.HasPrefix(dest[len(u.Scheme)+1:], "//") {
		return false
	}
	return blob.DefaultURLMux().ValidBucketScheme(u.Scheme)
}

// SplitBucketURL splits a destination URL into the bucket URL and object key.
//
// For file:// URLs the bucket is the parent directory and the key the file
// name. For every other scheme the host names the bucket and the path is the
// key, e.g. s3://downloads/installers/setup.exe?region=eu-west-1.
func SplitBucketURL(dest string) (bucketURL, key string, err error) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", "", err
	}

	if u.Scheme == "file" {
		dir, name := path.Split(u.Path)
		if name == "" {
			return "", "", fmt.Errorf("no object name in %q", dest)
		}
		b := *u
		b.Path = strings.TrimSuffix(dir, "/")
		return b.String(), name, nil
	}

	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("no object key in %q", dest)
	}
	b := *u
	b.Path = ""
	return b.String(), key, nil
}

func openBucketURL(ctx context.Context, dest string) (io.WriteCloser, error) {
	bucketURL, key, err := SplitBucketURL(dest)
	if err != nil {
		return nil, &Error{Op: OpOpen, Dest: dest, Err: err}
	}

	if u, _ := url.Parse(bucketURL); u != nil && u.Scheme == "file" {
		if err := os.MkdirAll(filepath.FromSlash(u.Path), 0o755); err != nil {
			return nil, &Error{Op: OpCreate, Dest: dest, Err: err}
		}
	}

	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, &Error{Op: OpCreate, Dest: dest, Err: describe(err)}
	}

	w, err := OpenObject(ctx, bucket, key)
	if err != nil {
		bucket.Close()
		return nil, err
	}
	return &bucketWriter{WriteCloser: w, bucket: bucket}, nil
}

// bucketWriter closes the bucket it owns after committing the object.
type bucketWriter struct {
	io.WriteCloser
	bucket *blob.Bucket
}

func (w *bucketWriter) Close() error {
	return errors.Join(w.WriteCloser.Close(), w.bucket.Close())
}

// describe prefixes gocloud errors with their portable error code.
func describe(err error) error {
	code := gcerrors.Code(err)
	if code == gcerrors.Unknown || code == gcerrors.OK {
		return err
	}
	return fmt.Errorf("%v: %w", code, err)
}
