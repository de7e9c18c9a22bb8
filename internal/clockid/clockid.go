// Package clockid provides the monotonic UTC clock and opaque id minting
// that every other package is injected with, so tests can run deterministically.
package clockid

import (
	"time"

	"github.com/google/uuid"
)

// Clock returns the current instant. Production code uses SystemClock;
// tests inject a FixedClock or a manually-advanced clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reports real wall-clock time, always normalized to UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock reports a constant instant. Useful for golden-output tests.
type FixedClock struct {
	At time.Time
}

func (f FixedClock) Now() time.Time { return f.At.UTC() }

// Minter mints opaque identifiers. Production code uses UUIDMinter.
type Minter interface {
	NewID() string
}

// UUIDMinter mints RFC 4122 v4 identifiers via google/uuid.
type UUIDMinter struct{}

func (UUIDMinter) NewID() string { return uuid.New().String() }

// SequenceMinter mints predictable ids for tests ("id-1", "id-2", ...).
type SequenceMinter struct {
	prefix string
	next   int
}

func NewSequenceMinter(prefix string) *SequenceMinter {
	return &SequenceMinter{prefix: prefix}
}

func (s *SequenceMinter) NewID() string {
	s.next++
	return s.prefix + "-" + itoa(s.next)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
