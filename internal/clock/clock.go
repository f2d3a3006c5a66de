package clock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
)

// defaultQueryTimeout bounds a single NTP query.
const defaultQueryTimeout = 5 * time.Second

// Clock is the time source used by the scheduler and shell sessions.
type Clock interface {
	// Now returns the current time in the site timezone.
	Now() time.Time

	// Resync corrects the clock from its reference.
	Resync(ctx context.Context) error
}

// queryFunc matches ntp.QueryWithOptions.
type queryFunc func(host string, opts ntp.QueryOptions) (*ntp.Response, error)

// SystemClock is host time corrected by an NTP offset.
//
// Thread Safety:
//   - Now and Resync may be called from different goroutines.
type SystemClock struct {
	server   string
	location *time.Location
	query    queryFunc

	mu     sync.RWMutex
	offset time.Duration
	synced time.Time
}

// NewSystem creates a SystemClock for the given NTP server and timezone.
// An empty server disables Resync.
func NewSystem(server string, location *time.Location) *SystemClock {
	if location == nil {
		location = time.UTC
	}
	return &SystemClock{
		server:   server,
		location: location,
		query:    ntp.QueryWithOptions,
	}
}

// Now implements Clock.
func (c *SystemClock) Now() time.Time {
	c.mu.RLock()
	offset := c.offset
	c.mu.RUnlock()
	return time.Now().Add(offset).In(c.location)
}

// Offset returns the correction applied at the last successful resync.
func (c *SystemClock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

// LastSync returns the host time of the last successful resync, or zero.
func (c *SystemClock) LastSync() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}

// Resync queries the NTP server and stores the measured clock offset.
// The query timeout is the shorter of ctx's deadline and defaultQueryTimeout.
func (c *SystemClock) Resync(ctx context.Context) error {
	if c.server == "" {
		return ErrNoServer
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrResyncFailed, err)
	}

	timeout := defaultQueryTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	resp, err := c.query(c.server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return fmt.Errorf("%w: querying %s: %w", ErrResyncFailed, c.server, err)
	}
	if err := resp.Validate(); err != nil {
		return fmt.Errorf("%w: invalid response from %s: %w", ErrResyncFailed, c.server, err)
	}

	c.mu.Lock()
	c.offset = resp.ClockOffset
	c.synced = time.Now()
	c.mu.Unlock()

	return nil
}
