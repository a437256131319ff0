package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/killallgit/usechat/pkg/stream"
)

// FakeTransport implements stream.Transport with canned responses streamed
// as text deltas.
type FakeTransport struct {
	mu           sync.Mutex
	responses    []string
	currentIndex int
	requests     []stream.Request
	chunkDelay   time.Duration // Delay between chunks
	chunkSize    int           // Bytes per chunk
	failAfter    int           // Fail after N chunks (0 = no failure)
	errorMessage string
	usage        *stream.Usage
}

// NewFakeTransport creates a transport answering with responses in turn.
func NewFakeTransport(responses ...string) *FakeTransport {
	return &FakeTransport{
		responses: responses,
		chunkSize: 5,
	}
}

// Stream implements stream.Transport
func (f *FakeTransport) Stream(ctx context.Context, req stream.Request, emit func(stream.Event)) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	var response string
	if len(f.responses) > 0 {
		response = f.responses[f.currentIndex]
		f.currentIndex = (f.currentIndex + 1) % len(f.responses)
	}
	delay, size, failAfter, errMsg := f.chunkDelay, f.chunkSize, f.failAfter, f.errorMessage
	var usage *stream.Usage
	if f.usage != nil {
		u := *f.usage
		usage = &u
	}
	f.mu.Unlock()

	for i, chunk := range Chunk(response, size) {
		if failAfter > 0 && i == failAfter {
			if errMsg == "" {
				errMsg = "simulated stream failure"
			}
			return errors.New(errMsg)
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		emit(stream.TextDelta(chunk))
	}

	emit(stream.Finish("stop", usage))
	return nil
}

// SetUsage sets the usage reported with every finish event.
func (f *FakeTransport) SetUsage(usage stream.Usage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage = &usage
}

// SetChunkDelay sets the pause before each chunk.
func (f *FakeTransport) SetChunkDelay(delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkDelay = delay
}

// SetChunkSize sets the number of bytes per chunk.
func (f *FakeTransport) SetChunkSize(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkSize = size
}

// SetFailAfter makes Stream fail after the given number of chunks.
func (f *FakeTransport) SetFailAfter(chunks int, errorMessage string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAfter = chunks
	f.errorMessage = errorMessage
}

// Requests returns the requests received so far.
func (f *FakeTransport) Requests() []stream.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]stream.Request(nil), f.requests...)
}

// CallCount returns the number of Stream calls.
func (f *FakeTransport) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}
