// Package ids provides the identifier generators used for chats and
// messages.
package ids

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/killallgit/usechat/pkg/config"
)

// Generator returns a new unique identifier on every call. Generators are
// safe for concurrent use.
type Generator func() string

// UUID generates random (version 4) UUIDs.
func UUID() Generator {
	return func() string {
		return uuid.NewString()
	}
}

// ULID generates lexically sortable ULIDs. Identifiers created in the same
// millisecond are monotonic.
func ULID() Generator {
	var mu sync.Mutex
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	}
}

// Sequence generates prefix-1, prefix-2, ... Useful for tests and logs.
func Sequence(prefix string) Generator {
	var n atomic.Uint64
	return func() string {
		return prefix + "-" + strconv.FormatUint(n.Add(1), 10)
	}
}

// FromConfig returns the generator named by chat.id_generator.
func FromConfig(name string) (Generator, error) {
	switch name {
	case config.IDGeneratorUUID, "":
		return UUID(), nil
	case config.IDGeneratorULID:
		return ULID(), nil
	case config.IDGeneratorSequence:
		return Sequence("msg"), nil
	default:
		return nil, fmt.Errorf("%q: %w", name, config.ErrUnknownIDGenerator)
	}
}
