package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// URL is the URL being downloaded (for display).
	URL string

	// Total is the declared size in bytes. Only used when HasTotal is set.
	Total    int64
	HasTotal bool

	// UpdateInterval is the minimum time between two progress lines.
	// Default: 200ms
	UpdateInterval time.Duration

	// Interactive rewrites a single line with carriage returns instead of
	// printing one line per update.
	Interactive bool
}

// Reporter renders human-readable progress for a single download.
// It is a Sink and must be driven from the copying goroutine.
type Reporter struct {
	opts    Options
	tracker *Tracker

	started    bool
	startTime  time.Time
	lastRender time.Time
	lastWidth  int
	finished   bool

	now func() time.Time
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 200 * time.Millisecond
	}

	r := &Reporter{
		opts: opts,
		now:  time.Now,
	}
	r.tracker = NewTracker(opts.Total, opts.HasTotal, r.observe)
	return r
}

// OnChunk implements Sink.
func (r *Reporter) OnChunk(n int) error {
	return r.tracker.OnChunk(n)
}

// Transferred returns the bytes reported so far.
func (r *Reporter) Transferred() int64 {
	return r.tracker.Transferred()
}

// Line returns the current progress text, e.g. "512 / 1024 KiB  - 50.00%".
func (r *Reporter) Line() string {
	return formatLine(r.tracker.Snapshot())
}

// Finish prints the final progress line and a summary. It is a no-op when
// nothing was reported or Finish was already called.
func (r *Reporter) Finish() error {
	if !r.started || r.finished {
		return nil
	}
	r.finished = true

	if err := r.render(r.tracker.Snapshot()); err != nil {
		return err
	}
	if r.opts.Interactive {
		if _, err := fmt.Fprintln(r.opts.Output); err != nil {
			return err
		}
	}

	completed := r.tracker.Transferred()
	duration := r.now().Sub(r.startTime)
	var avgSpeed float64
	if duration > 0 {
		avgSpeed = float64(completed) / duration.Seconds()
	}

	_, err := fmt.Fprintf(r.opts.Output, "Downloaded %s in %s (%s/s)\n",
		FormatBytes(completed),
		formatDuration(duration),
		FormatBytes(int64(avgSpeed)),
	)
	return err
}

// Abort ends an unfinished interactive line so that following output starts
// on a fresh line. It prints no summary.
func (r *Reporter) Abort() error {
	if !r.started || r.finished {
		return nil
	}
	r.finished = true
	if !r.opts.Interactive {
		return nil
	}
	_, err := fmt.Fprintln(r.opts.Output)
	return err
}

// observe handles one tracker event. The header is written lazily on the
// first chunk so that failed fetches print nothing.
func (r *Reporter) observe(ev Event) error {
	now := r.now()
	if !r.started {
		r.started = true
		r.startTime = now
		if _, err := fmt.Fprintf(r.opts.Output, "Downloading %s ...\n", r.opts.URL); err != nil {
			return fmt.Errorf("progress: %w", err)
		}
	} else if now.Sub(r.lastRender) < r.opts.UpdateInterval && !complete(ev) {
		return nil
	}

	r.lastRender = now
	if err := r.render(ev); err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	return nil
}

func (r *Reporter) render(ev Event) error {
	line := formatLine(ev)
	if !r.opts.Interactive {
		_, err := fmt.Fprintln(r.opts.Output, line)
		return err
	}

	// Pad over leftovers of a longer previous line.
	pad := ""
	if r.lastWidth > len(line) {
		pad = strings.Repeat(" ", r.lastWidth-len(line))
	}
	r.lastWidth = len(line)
	_, err := fmt.Fprintf(r.opts.Output, "\r%s%s", line, pad)
	return err
}

func complete(ev Event) bool {
	pct, ok := ev.Percent()
	return ok && pct >= 100
}

// formatLine renders "read / total KiB  - pct%" when the size is known and
// "read KiB" otherwise.
func formatLine(ev Event) string {
	pct, ok := ev.Percent()
	if !ok {
		return fmt.Sprintf("%d KiB", ev.Transferred/1024)
	}
	return fmt.Sprintf("%d / %d KiB  - %.2f%%", ev.Transferred/1024, ev.Total/1024, pct)
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}
