package rate

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	burst := 1

	interval := 10 * time.Millisecond
	lim := Every(interval)
	r := NewLimiter(burst, 100, lim)
	defer r.Stop()

	tooshort := 1 * time.Millisecond

	client := "203.0.113.7"
	expected := []bool{true, false, true, true, false, false}
	waits := []time.Duration{tooshort, interval, interval, tooshort, tooshort, tooshort}
	for i, exp := range expected {
		if got := r.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}

func TestLimiterWithBurst(t *testing.T) {
	client := "203.0.113.7"
	burst := 10

	interval := 100 * time.Millisecond
	lim := Every(interval)

	tooshort := 10 * time.Millisecond

	shortest := 1 * time.Millisecond

	expected := []bool{true, true, true, true, true, true, true, true, true, true}
	waits := []time.Duration{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

	expected = append(expected, false, true, true, false, false, false)
	waits = append(waits, interval, interval, tooshort, tooshort, shortest, shortest)

	rr := NewLimiter(burst, 100, lim)
	defer rr.Stop()
	for i, exp := range expected {
		if got := rr.Check(client); got != exp {
			t.Fatalf("iteration %d: expected %v, but got %v", i, exp, got)
		}
		time.Sleep(waits[i])
	}
}

func TestLimiterIsolatesClients(t *testing.T) {
	r := NewLimiter(1, 100, Every(time.Minute))
	defer r.Stop()

	if !r.Check("203.0.113.7") {
		t.Fatal("first client should be allowed")
	}
	if r.Check("203.0.113.7") {
		t.Fatal("first client should be exhausted")
	}
	if !r.Check("198.51.100.9") {
		t.Fatal("second client must not share the first client's bucket")
	}
}

func TestLimiterStop(t *testing.T) {
	r := NewLimiter(1, 100, Every(time.Minute))
	r.Stop()

	// Checks still answer after the eviction goroutine is gone.
	if !r.Check("203.0.113.7") {
		t.Fatal("check should be allowed after stop")
	}
}
