// Package host adapts the downloader to callers that pass arguments on a
// string stack and expect a single integer pushed back, the convention used
// by installer plugin hosts. A host shim embeds Plugin and implements Stack
// over the host's own stack.
package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/ligustah/nsisdl/internal/downloader"
)

// ErrStackEmpty is returned when a required argument is missing.
var ErrStackEmpty = errors.New("host: stack is empty")

// Stack is the argument stack shared with the host.
type Stack interface {
	PopString() (string, error)
	PushInt(int)
}

// SliceStack is an in-memory Stack. The last element of Strings is the top.
type SliceStack struct {
	Strings []string
	Ints    []int
}

// NewSliceStack returns a stack whose top is args[0].
func NewSliceStack(args ...string) *SliceStack {
	s := &SliceStack{Strings: make([]string, 0, len(args))}
	for i := len(args) - 1; i >= 0; i-- {
		s.Strings = append(s.Strings, args[i])
	}
	return s
}

func (s *SliceStack) PopString() (string, error) {
	if len(s.Strings) == 0 {
		return "", ErrStackEmpty
	}
	top := s.Strings[len(s.Strings)-1]
	s.Strings = s.Strings[:len(s.Strings)-1]
	return top, nil
}

func (s *SliceStack) PushInt(v int) {
	s.Ints = append(s.Ints, v)
}

// Func performs one download and returns its status code.
type Func func(ctx context.Context, url, path string) int

// Invoke pops the URL and then the destination path, runs fn and pushes its
// result. Nothing is pushed when an argument is missing.
func Invoke(ctx context.Context, stack Stack, fn Func) error {
	url, err := stack.PopString()
	if err != nil {
		return fmt.Errorf("pop url: %w", err)
	}
	path, err := stack.PopString()
	if err != nil {
		return fmt.Errorf("pop path: %w", err)
	}
	stack.PushInt(fn(ctx, url, path))
	return nil
}

// Plugin binds the downloader to the host calling convention.
type Plugin struct {
	Options downloader.Options
}

// Download downloads url to path and returns the status code.
func (p *Plugin) Download(ctx context.Context, url, path string) int {
	return downloader.Status(ctx, url, path, p.Options)
}

// Call is Invoke with p.Download.
func (p *Plugin) Call(ctx context.Context, stack Stack) error {
	return Invoke(ctx, stack, p.Download)
}
