package stream

import (
	"sync"
	"time"
)

// RequestState is the lifecycle state of one streamed request.
type RequestState int

const (
	RequestIdle RequestState = iota
	RequestStreaming
	RequestComplete
	RequestError
	RequestCancelled
)

func (s RequestState) String() string {
	switch s {
	case RequestIdle:
		return "idle"
	case RequestStreaming:
		return "streaming"
	case RequestComplete:
		return "complete"
	case RequestError:
		return "error"
	case RequestCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Done reports whether the request has ended.
func (s RequestState) Done() bool {
	return s == RequestComplete || s == RequestError || s == RequestCancelled
}

// RequestInfo holds what is known about a request.
type RequestInfo struct {
	ID           string
	State        RequestState
	StartTime    time.Time
	EndTime      time.Time
	Events       int
	FinishReason string
	Usage        *Usage
	Error        error
}

// Duration returns how long the request ran, or has been running.
func (i RequestInfo) Duration() time.Duration {
	if i.EndTime.IsZero() {
		return time.Since(i.StartTime)
	}
	return i.EndTime.Sub(i.StartTime)
}

// Tracker tracks the lifecycle of streamed requests by id.
type Tracker struct {
	requests map[string]*RequestInfo
	mu       sync.RWMutex
}

func NewTracker() *Tracker {
	return &Tracker{
		requests: make(map[string]*RequestInfo),
	}
}

// Start marks a request as streaming. Starting a known id resets it.
func (t *Tracker) Start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests[id] = &RequestInfo{
		ID:        id,
		State:     RequestStreaming,
		StartTime: time.Now(),
	}
}

// Observe records ev against a streaming request. Finish events carry the
// finish reason and usage.
func (t *Tracker) Observe(id string, ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.requests[id]
	if !ok || info.State.Done() {
		return
	}
	info.Events++
	if ev.Type == EventFinish {
		info.FinishReason = ev.FinishReason
		if ev.Usage != nil {
			u := *ev.Usage
			info.Usage = &u
		}
	}
}

// Finish ends a request in state with an optional error. Ended requests keep
// their first outcome.
func (t *Tracker) Finish(id string, state RequestState, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.requests[id]
	if !ok || info.State.Done() || !state.Done() {
		return
	}
	info.State = state
	info.Error = err
	info.EndTime = time.Now()
}

// Get returns a copy of the request's info.
func (t *Tracker) Get(id string) (RequestInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	info, ok := t.requests[id]
	if !ok {
		return RequestInfo{}, false
	}
	out := *info
	if info.Usage != nil {
		u := *info.Usage
		out.Usage = &u
	}
	return out, true
}

// Cleanup removes ended requests that finished more than olderThan ago.
func (t *Tracker) Cleanup(olderThan time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	for id, info := range t.requests {
		if info.State.Done() && now.Sub(info.EndTime) > olderThan {
			delete(t.requests, id)
		}
	}
}
