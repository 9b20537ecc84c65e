package finetune

import (
	"sync"
	"time"
)

// RetryPolicy bounds how often a company may start (or restart) a training
// attempt: at most MaxAttempts per company, spaced at least CoolDown apart.
// State is in-memory; a process restart forgives past attempts, which is
// acceptable because the scheduler sweep is the only high-volume caller.
type RetryPolicy struct {
	MaxAttempts int
	CoolDown    time.Duration

	mu       sync.Mutex
	attempts map[string]int
	lastAt   map[string]time.Time

	// now is swappable for tests.
	now func() time.Time
}

// NewRetryPolicy builds a policy. maxAttempts < 1 defaults to 3.
func NewRetryPolicy(maxAttempts int, coolDown time.Duration) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		CoolDown:    coolDown,
		attempts:    make(map[string]int),
		lastAt:      make(map[string]time.Time),
		now:         time.Now,
	}
}

// Allow reports whether the company may start an attempt right now.
func (p *RetryPolicy) Allow(companyID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.attempts[companyID] >= p.MaxAttempts {
		return false
	}
	if last, ok := p.lastAt[companyID]; ok && p.now().Sub(last) < p.CoolDown {
		return false
	}
	return true
}

// Record counts an attempt against the company and stamps the cool-down.
func (p *RetryPolicy) Record(companyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts[companyID]++
	p.lastAt[companyID] = p.now()
}

// Reset clears attempt history, e.g. after success or a description edit.
func (p *RetryPolicy) Reset(companyID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.attempts, companyID)
	delete(p.lastAt, companyID)
}
