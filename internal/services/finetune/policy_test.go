package finetune

import (
	"testing"
	"time"
)

func TestRetryPolicy_AttemptCap(t *testing.T) {
	p := NewRetryPolicy(3, 0)
	for i := 0; i < 3; i++ {
		if !p.Allow("c1") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		p.Record("c1")
	}
	if p.Allow("c1") {
		t.Fatal("fourth attempt should be denied")
	}
	// Other companies are unaffected.
	if !p.Allow("c2") {
		t.Fatal("other company should be allowed")
	}
}

func TestRetryPolicy_CoolDown(t *testing.T) {
	p := NewRetryPolicy(10, 10*time.Minute)
	now := time.Unix(1_000_000, 0)
	p.now = func() time.Time { return now }

	p.Record("c1")
	if p.Allow("c1") {
		t.Fatal("attempt within cool-down should be denied")
	}
	now = now.Add(9 * time.Minute)
	if p.Allow("c1") {
		t.Fatal("still cooling down at 9m")
	}
	now = now.Add(time.Minute)
	if !p.Allow("c1") {
		t.Fatal("cool-down elapsed, attempt should be allowed")
	}
}

func TestRetryPolicy_Reset(t *testing.T) {
	p := NewRetryPolicy(1, time.Hour)
	p.Record("c1")
	if p.Allow("c1") {
		t.Fatal("should be exhausted")
	}
	p.Reset("c1")
	if !p.Allow("c1") {
		t.Fatal("reset should restore the budget")
	}
}

func TestNewRetryPolicy_DefaultsMaxAttempts(t *testing.T) {
	if p := NewRetryPolicy(0, 0); p.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
}
