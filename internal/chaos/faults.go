package chaos

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var ErrInjectedFault = errors.New("chaos: injected fault")

// FaultInjector is an http.RoundTripper that delays or fails requests.
// Settings can change while requests are in flight.
type FaultInjector struct {
	next http.RoundTripper

	mu          sync.RWMutex
	failureRate float64
	latency     time.Duration

	injected atomic.Int64
	roll     func() float64
}

// NewFaultInjector wraps next, or http.DefaultTransport when next is nil.
func NewFaultInjector(next http.RoundTripper) *FaultInjector {
	if next == nil {
		next = http.DefaultTransport
	}
	return &FaultInjector{next: next, roll: rand.Float64}
}

// SetFailureRate makes the given fraction of requests fail. 1 fails all.
func (f *FaultInjector) SetFailureRate(rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("failure rate must be between 0 and 1, got %v", rate)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failureRate = rate
	return nil
}

func (f *FaultInjector) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// Reset turns all faults off.
func (f *FaultInjector) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failureRate = 0
	f.latency = 0
}

// Injected reports how many requests were failed on purpose.
func (f *FaultInjector) Injected() int64 {
	return f.injected.Load()
}

func (f *FaultInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.RLock()
	rate, latency := f.failureRate, f.latency
	f.mu.RUnlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-timer.C:
		case <-req.Context().Done():
			timer.Stop()
			closeBody(req)
			return nil, req.Context().Err()
		}
	}

	if rate > 0 && f.roll() < rate {
		f.injected.Add(1)
		closeBody(req)
		return nil, fmt.Errorf("%w: %s %s", ErrInjectedFault, req.Method, req.URL.Path)
	}
	return f.next.RoundTrip(req)
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}
