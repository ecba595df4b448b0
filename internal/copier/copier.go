// Package copier streams a byte source to a destination in bounded chunks,
// reporting every written chunk to a progress sink.
//
// The copy is synchronous: read a chunk, write it fully, notify the sink,
// repeat. Any read, write or sink failure aborts the copy immediately and the
// partially written destination is left in place.
package copier

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ligustah/nsisdl/internal/progress"
	"github.com/ligustah/nsisdl/internal/target"
)

// DefaultChunkSize is the read buffer size used when none is configured.
const DefaultChunkSize = 32 * 1024

// Operations reported in IOError.
const (
	OpCreate   = target.OpCreate
	OpOpen     = target.OpOpen
	OpRead     = "read"
	OpWrite    = "write"
	OpProgress = "progress"
	OpClose    = "close"
)

// IOError is returned for every local failure during a copy, including
// failures to read the source after the connection was established.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("copier: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("copier: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Options configures a copy.
type Options struct {
	// ChunkSize is the maximum number of bytes read per chunk.
	// Default: 32KiB
	ChunkSize int
}

// CopyWithProgress opens dest (see target.Open), copies src into it and
// returns the number of bytes written. sink may be nil.
func CopyWithProgress(ctx context.Context, src io.Reader, dest string, sink progress.Sink, opts Options) (int64, error) {
	w, err := target.Open(ctx, dest)
	if err != nil {
		var te *target.Error
		if errors.As(err, &te) {
			return 0, &IOError{Op: te.Op, Path: dest, Err: te.Err}
		}
		return 0, &IOError{Op: OpOpen, Path: dest, Err: err}
	}

	n, err := Copy(src, w, sink, opts.ChunkSize)
	if cerr := w.Close(); cerr != nil && err == nil {
		err = &IOError{Op: OpClose, Err: cerr}
	}
	if err != nil {
		var ioe *IOError
		if errors.As(err, &ioe) && ioe.Path == "" {
			ioe.Path = dest
		}
		return n, err
	}
	return n, nil
}

// Copy copies src to dst in chunks of at most chunkSize bytes. After each
// chunk has been written in full, sink.OnChunk is called with its length.
// The returned count only includes fully written chunks.
func Copy(src io.Reader, dst io.Writer, sink progress.Sink, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if sink == nil {
		sink = progress.Discard
	}

	buf := make([]byte, chunkSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			nw, err := dst.Write(buf[:n])
			if err == nil && nw != n {
				err = io.ErrShortWrite
			}
			if err != nil {
				return written, &IOError{Op: OpWrite, Err: err}
			}
			written += int64(n)

			if err := sink.OnChunk(n); err != nil {
				return written, &IOError{Op: OpProgress, Err: err}
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, &IOError{Op: OpRead, Err: readErr}
		}
	}
}
