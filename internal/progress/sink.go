package progress

// Sink receives the size of every chunk once it has been written to the
// destination. A non-nil error aborts the transfer.
type Sink interface {
	OnChunk(n int) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(n int) error

// OnChunk calls f(n).
func (f SinkFunc) OnChunk(n int) error {
	return f(n)
}

// Discard is a Sink that ignores all chunks.
var Discard Sink = SinkFunc(func(int) error { return nil })

// Event is a single progress notification.
type Event struct {
	// Chunk is the number of bytes written by the chunk that triggered the event.
	Chunk int
	// Transferred is the running total including Chunk.
	Transferred int64
	// Total is the declared size. Only meaningful when HasTotal is set.
	Total    int64
	HasTotal bool
}

// Percent returns the completion percentage. It reports false when the total
// is unknown or zero.
func (e Event) Percent() (float64, bool) {
	if !e.HasTotal || e.Total <= 0 {
		return 0, false
	}
	return float64(e.Transferred) / float64(e.Total) * 100, true
}

// Observer is notified with a fresh Event for every chunk.
type Observer func(Event) error

// Tracker accumulates chunk sizes into a running total and forwards an Event
// per chunk to its observer.
type Tracker struct {
	total       int64
	hasTotal    bool
	transferred int64
	observer    Observer
}

// NewTracker creates a Tracker for a transfer of the given declared size.
// observer may be nil.
func NewTracker(total int64, hasTotal bool, observer Observer) *Tracker {
	return &Tracker{
		total:    total,
		hasTotal: hasTotal,
		observer: observer,
	}
}

// OnChunk implements Sink.
func (t *Tracker) OnChunk(n int) error {
	t.transferred += int64(n)
	if t.observer == nil {
		return nil
	}
	return t.observer(t.event(n))
}

// Transferred returns the bytes reported so far.
func (t *Tracker) Transferred() int64 {
	return t.transferred
}

// Snapshot returns the current state as an Event with a zero Chunk.
func (t *Tracker) Snapshot() Event {
	return t.event(0)
}

func (t *Tracker) event(chunk int) Event {
	return Event{
		Chunk:       chunk,
		Transferred: t.transferred,
		Total:       t.total,
		HasTotal:    t.hasTotal,
	}
}
