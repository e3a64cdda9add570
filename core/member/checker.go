package member

import (
	"context"
	"sync"
	"time"
)

// UsernameChecker debounces username-availability checks while a member types
// their desired name. Scheduling a new check cancels the previous pending one
// so only the latest input's result is ever reported.
type UsernameChecker struct {
	svc   *Service
	delay time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewUsernameChecker(svc *Service, delay time.Duration) *UsernameChecker {
	return &UsernameChecker{svc: svc, delay: delay}
}

func (c *UsernameChecker) Check(username string, report func(available bool)) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.mu.Unlock()

	go func() {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		available := !c.svc.UsernameTaken(username)
		select {
		case <-ctx.Done(): // superseded while checking; drop the result
		default:
			report(available)
		}
	}()
}

// Stop cancels any pending check.
func (c *UsernameChecker) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
