package downloader

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ligustah/nsisdl/internal/copier"
	nsishttp "github.com/ligustah/nsisdl/internal/http"
	"github.com/ligustah/nsisdl/internal/progress"
)

// Status codes reported by Outcome.Code besides raw HTTP statuses.
const (
	StatusSuccess          = 0
	StatusIOFailure        = 1
	StatusTransportFailure = 499
)

// Request names what to download and where to put it.
type Request struct {
	URL         string
	Destination string
}

// Kind classifies an Outcome.
type Kind int

const (
	Success Kind = iota
	HTTPStatusError
	TransportError
	IOError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case HTTPStatusError:
		return "http status error"
	case TransportError:
		return "transport error"
	case IOError:
		return "i/o error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the terminal result of one download attempt.
type Outcome struct {
	Kind Kind
	// HTTPStatus is the status the server answered with, if any.
	HTTPStatus int
	// Bytes is the number of bytes written to the destination.
	Bytes    int64
	Metadata nsishttp.Metadata
	Err      error
}

// Code maps the outcome onto the caller-facing integer status.
func (o Outcome) Code() int {
	switch o.Kind {
	case Success:
		return StatusSuccess
	case HTTPStatusError:
		return o.HTTPStatus
	case TransportError:
		return StatusTransportFailure
	default:
		return StatusIOFailure
	}
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s (%d): %v", o.Kind, o.Code(), o.Err)
	}
	return fmt.Sprintf("%s (%d): %d bytes", o.Kind, o.Code(), o.Bytes)
}

// Options configures the downloader.
type Options struct {
	// Client performs the request. Default: a client with nsishttp.DefaultOptions.
	Client *nsishttp.Client

	// ChunkSize is the copy buffer size. Default: copier.DefaultChunkSize
	ChunkSize int

	// NewSink builds the progress sink once the response metadata is known.
	// It is not called when the fetch fails.
	NewSink func(meta nsishttp.Metadata) progress.Sink

	// Logger receives structured diagnostics. Default: discarded.
	Logger logrus.FieldLogger
}

// Download fetches req.URL into req.Destination and returns exactly one
// Outcome. The destination is not touched unless the server answered 2xx.
func Download(ctx context.Context, req Request, opts Options) Outcome {
	client := opts.Client
	if client == nil {
		client = nsishttp.NewClient(nsishttp.DefaultOptions())
	}
	log := logger(opts).WithFields(logrus.Fields{
		"attempt": uuid.NewString(),
		"url":     req.URL,
		"dest":    req.Destination,
	})

	log.Debug("fetching")
	resp, err := client.Fetch(ctx, req.URL)
	if err != nil {
		outcome := fetchOutcome(err)
		log.WithError(err).WithFields(logrus.Fields{
			"status": outcome.Code(),
			"reason": nsishttp.Reason(err),
		}).Warn("fetch failed")
		return outcome
	}
	defer resp.Body.Close()

	meta := resp.Metadata
	size, known := meta.Size()
	log = log.WithField("http_status", resp.StatusCode)
	if known {
		log = log.WithField("size", size)
	}
	log.WithFields(logrus.Fields{
		"etag":         meta.ETag,
		"content_type": meta.ContentType,
		"final_url":    meta.FinalURL,
	}).Debug("response received")

	var sink progress.Sink
	if opts.NewSink != nil {
		sink = opts.NewSink(meta)
	}

	n, err := copier.CopyWithProgress(ctx, resp.Body, req.Destination, sink, copier.Options{
		ChunkSize: opts.ChunkSize,
	})
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"bytes":  n,
			"status": StatusIOFailure,
		}).Warn("copy failed, partial file left in place")
		return Outcome{
			Kind:       IOError,
			HTTPStatus: resp.StatusCode,
			Bytes:      n,
			Metadata:   meta,
			Err:        err,
		}
	}

	if known && n != size {
		log.WithField("bytes", n).Warn("byte count differs from declared size")
	}
	log.WithField("bytes", n).Info("download complete")

	return Outcome{
		Kind:       Success,
		HTTPStatus: resp.StatusCode,
		Bytes:      n,
		Metadata:   meta,
	}
}

// Status downloads url to path and returns only the integer status code.
func Status(ctx context.Context, url, path string, opts Options) int {
	return Download(ctx, Request{URL: url, Destination: path}, opts).Code()
}

// fetchOutcome classifies a fetch failure. Anything that is neither a status
// nor a transport error is treated as a transport failure since no bytes were
// copied yet.
func fetchOutcome(err error) Outcome {
	if code, ok := nsishttp.StatusCode(err); ok {
		return Outcome{Kind: HTTPStatusError, HTTPStatus: code, Err: err}
	}
	return Outcome{Kind: TransportError, Err: err}
}

func logger(opts Options) logrus.FieldLogger {
	if opts.Logger != nil {
		return opts.Logger
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

