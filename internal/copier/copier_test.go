package copier

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ligustah/nsisdl/internal/progress"
)

// chunkedReader returns one element of chunks per Read, then err (io.EOF by default).
type chunkedReader struct {
	chunks [][]byte
	err    error
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if len(r.chunks[0]) == 0 {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

// recorder is a progress sink remembering every chunk size.
type recorder struct {
	chunks []int
	failAt int
	err    error
}

func (r *recorder) OnChunk(n int) error {
	r.chunks = append(r.chunks, n)
	if r.err != nil && len(r.chunks) == r.failAt {
		return r.err
	}
	return nil
}

func (r *recorder) sum() int64 {
	var s int64
	for _, n := range r.chunks {
		s += int64(n)
	}
	return s
}

func TestCopyTwoChunks(t *testing.T) {
	src := &chunkedReader{chunks: [][]byte{
		bytes.Repeat([]byte{'a'}, 512),
		bytes.Repeat([]byte{'b'}, 512),
	}}
	dest := filepath.Join(t.TempDir(), "file.bin")
	rec := &recorder{}

	n, err := CopyWithProgress(context.Background(), src, dest, rec, Options{})
	if err != nil {
		t.Fatalf("CopyWithProgress: %v", err)
	}
	if n != 1024 {
		t.Errorf("expected 1024 bytes, got %d", n)
	}
	if !reflect.DeepEqual(rec.chunks, []int{512, 512}) {
		t.Errorf("expected chunks [512 512], got %v", rec.chunks)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != n || rec.sum() != n {
		t.Errorf("file size %d and reported %d must equal copied %d", info.Size(), rec.sum(), n)
	}
}

func TestCopyRespectsChunkSize(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 100)
	var dst bytes.Buffer
	rec := &recorder{}

	n, err := Copy(bytes.NewReader(data), &dst, rec, 64)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if n != int64(len(data)) {
		t.Errorf("expected %d bytes, got %d", len(data), n)
	}
	if !bytes.Equal(dst.Bytes(), data) {
		t.Error("copied data mismatch")
	}
	if rec.sum() != n {
		t.Errorf("expected reported sum %d, got %d", n, rec.sum())
	}
	for _, c := range rec.chunks {
		if c <= 0 || c > 64 {
			t.Errorf("chunk size %d outside (0, 64]", c)
		}
	}
}

func TestCopyEmptySource(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "empty.bin")
	rec := &recorder{}

	n, err := CopyWithProgress(context.Background(), bytes.NewReader(nil), dest, rec, Options{})
	if err != nil {
		t.Fatalf("CopyWithProgress: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 bytes, got %d", n)
	}
	if len(rec.chunks) != 0 {
		t.Errorf("expected no chunks, got %v", rec.chunks)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty file, got %d bytes", info.Size())
	}
}

func TestCopyCreatesMissingParents(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "a", "b", "c", "file.bin")

	n, err := CopyWithProgress(context.Background(), bytes.NewReader([]byte("hello")), dest, nil, Options{})
	if err != nil {
		t.Fatalf("CopyWithProgress: %v", err)
	}
	if n != 5 {
		t.Errorf("expected 5 bytes, got %d", n)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected hello, got %q", data)
	}
}

func TestCopyReplacesLargerFile(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "file.bin")
	if err := os.WriteFile(dest, bytes.Repeat([]byte{'x'}, 4096), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := CopyWithProgress(context.Background(), bytes.NewReader([]byte("new")), dest, nil, Options{}); err != nil {
		t.Fatalf("CopyWithProgress: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "new" {
		t.Errorf("expected previous content replaced, got %q", data)
	}
}

func TestCopyCreateFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rec := &recorder{}

	_, err := CopyWithProgress(context.Background(), bytes.NewReader([]byte("data")), filepath.Join(blocker, "x", "file.bin"), rec, Options{})

	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected *IOError, got %T: %v", err, err)
	}
	if ioe.Op != OpCreate {
		t.Errorf("expected op %s, got %s", OpCreate, ioe.Op)
	}
	if len(rec.chunks) != 0 {
		t.Errorf("expected no chunks, got %v", rec.chunks)
	}
}

func TestCopyReadErrorLeavesPartialFile(t *testing.T) {
	boom := errors.New("connection reset")
	src := &chunkedReader{
		chunks: [][]byte{[]byte("first chunk")},
		err:    boom,
	}
	dest := filepath.Join(t.TempDir(), "partial.bin")
	rec := &recorder{}

	n, err := CopyWithProgress(context.Background(), src, dest, rec, Options{})

	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected *IOError, got %T: %v", err, err)
	}
	if ioe.Op != OpRead || ioe.Path != dest {
		t.Errorf("expected read error on %s, got %s on %s", dest, ioe.Op, ioe.Path)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped %v, got %v", boom, err)
	}
	if n != int64(len("first chunk")) {
		t.Errorf("expected %d bytes, got %d", len("first chunk"), n)
	}
	if !reflect.DeepEqual(rec.chunks, []int{len("first chunk")}) {
		t.Errorf("unexpected chunks %v", rec.chunks)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("partial file must remain: %v", err)
	}
	if string(data) != "first chunk" {
		t.Errorf("expected partial content, got %q", data)
	}
}

type failingWriter struct {
	n   int
	err error
}

func (w failingWriter) Write(p []byte) (int, error) {
	return w.n, w.err
}

func TestCopyWriteError(t *testing.T) {
	boom := errors.New("disk full")
	rec := &recorder{}

	n, err := Copy(bytes.NewReader([]byte("data")), failingWriter{err: boom}, rec, 0)

	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected *IOError, got %T: %v", err, err)
	}
	if ioe.Op != OpWrite {
		t.Errorf("expected op %s, got %s", OpWrite, ioe.Op)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped %v, got %v", boom, err)
	}
	if n != 0 {
		t.Errorf("expected 0 bytes, got %d", n)
	}
	if len(rec.chunks) != 0 {
		t.Errorf("sink must not see a chunk that was not written, got %v", rec.chunks)
	}
}

func TestCopyShortWrite(t *testing.T) {
	_, err := Copy(bytes.NewReader([]byte("data")), failingWriter{n: 2}, nil, 0)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("expected io.ErrShortWrite, got %v", err)
	}
}

func TestCopySinkErrorAborts(t *testing.T) {
	boom := errors.New("observer failed")
	src := &chunkedReader{chunks: [][]byte{[]byte("one"), []byte("two"), []byte("three")}}
	rec := &recorder{failAt: 2, err: boom}
	var dst bytes.Buffer

	n, err := Copy(src, &dst, rec, 0)

	var ioe *IOError
	if !errors.As(err, &ioe) {
		t.Fatalf("expected *IOError, got %T: %v", err, err)
	}
	if ioe.Op != OpProgress {
		t.Errorf("expected op %s, got %s", OpProgress, ioe.Op)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped %v, got %v", boom, err)
	}
	if !reflect.DeepEqual(rec.chunks, []int{3, 3}) {
		t.Errorf("no chunk may be reported after the failure, got %v", rec.chunks)
	}
	if n != 6 || dst.String() != "onetwo" {
		t.Errorf("expected 6 bytes \"onetwo\", got %d %q", n, dst.String())
	}
}

func TestCopyWithTracker(t *testing.T) {
	data := bytes.Repeat([]byte{'z'}, 1024)
	var last progress.Event
	tracker := progress.NewTracker(int64(len(data)), true, func(ev progress.Event) error {
		last = ev
		return nil
	})

	n, err := Copy(bytes.NewReader(data), io.Discard, tracker, 256)
	if err != nil {
		t.Fatalf("Copy: %v", err)
	}
	if tracker.Transferred() != n {
		t.Errorf("tracker saw %d, copied %d", tracker.Transferred(), n)
	}
	if last.Transferred != last.Total {
		t.Errorf("expected final event at total, got %d / %d", last.Transferred, last.Total)
	}

	pct, ok := last.Percent()
	if !ok || pct != 100 {
		t.Errorf("expected 100%%, got %.2f (ok=%v)", pct, ok)
	}
}
