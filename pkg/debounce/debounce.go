// Package debounce delays a call until input has been quiet for a while.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs only the most recent triggered function, once the delay
// passes without another Trigger.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// Token cancels the call scheduled by one Trigger.
type Token struct {
	d   *Debouncer
	gen uint64
}

func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn and supersedes any call still pending. After Stop it
// does nothing.
func (d *Debouncer) Trigger(fn func()) Token {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return Token{}
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.stopped || d.gen != gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
	return Token{d: d, gen: gen}
}

// Cancel drops the call if it is still pending and reports whether it did.
func (t Token) Cancel() bool {
	d := t.d
	if d == nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.gen != t.gen || d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Stop cancels any pending call and disables the debouncer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
