package timing

import (
	"sync"
	"testing"
	"time"
)

// fakeClock advances by step on every call.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.step)
	return t
}

func TestRecorder(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0), step: 1500 * time.Microsecond}
	r := NewRecorder(Config{Now: clock.now})

	r.Start("register")
	if err := r.StopAndStart("register", "login"); err != nil {
		t.Fatalf("StopAndStart failed: %v", err)
	}
	if err := r.Stop("login"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("Entries() = %v, want 2 entries", entries)
	}
	if entries[0].Name != "register" || entries[0].Duration != 1500*time.Microsecond {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].Name != "login" || entries[1].Duration != 1500*time.Microsecond {
		t.Errorf("entries[1] = %+v", entries[1])
	}

	want := "Timings :\n - register: 1.5 ms\n - login: 1.5 ms\n"
	if got := r.Report(); got != want {
		t.Errorf("Report() = %q, want %q", got, want)
	}
}

func TestRecorderUnknownName(t *testing.T) {
	r := NewRecorder(Config{})

	if err := r.Stop("missing"); err != ErrUnknownTiming {
		t.Errorf("Stop() error = %v, want %v", err, ErrUnknownTiming)
	}
	if err := r.StopAndStart("missing", "next"); err != ErrUnknownTiming {
		t.Errorf("StopAndStart() error = %v, want %v", err, ErrUnknownTiming)
	}
	// next was started anyway.
	if err := r.Stop("next"); err != nil {
		t.Errorf("Stop(next) failed: %v", err)
	}
	if n := len(r.Entries()); n != 1 {
		t.Errorf("len(Entries()) = %d, want 1", n)
	}
}

func TestRecorderRepeatedName(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0), step: time.Millisecond}
	r := NewRecorder(Config{Now: clock.now})

	for i := 0; i < 3; i++ {
		r.Start("hop")
		r.Stop("hop")
	}
	if n := len(r.Entries()); n != 3 {
		t.Errorf("len(Entries()) = %d, want 3", n)
	}
}

func TestRecorderReset(t *testing.T) {
	r := NewRecorder(Config{})
	r.Start("a")
	r.Stop("a")
	r.Start("b")

	r.Reset()

	if n := len(r.Entries()); n != 0 {
		t.Errorf("len(Entries()) after Reset = %d, want 0", n)
	}
	if err := r.Stop("b"); err != ErrUnknownTiming {
		t.Errorf("Stop() after Reset error = %v, want %v", err, ErrUnknownTiming)
	}
	if got := r.Report(); got != "Timings :\n" {
		t.Errorf("Report() = %q", got)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder(Config{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Start("x")
				r.Stop("x")
			}
		}()
	}
	wg.Wait()

	if n := len(r.Entries()); n != 800 {
		t.Errorf("len(Entries()) = %d, want 800", n)
	}
}

func TestRecorderLimit(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1700000000, 0), step: time.Millisecond}
	r := NewRecorder(Config{Now: clock.now, Limit: 2})

	for _, name := range []string{"a", "b", "c", "d"} {
		r.Start(name)
		if err := r.Stop(name); err != nil {
			t.Fatalf("Stop(%s) failed: %v", name, err)
		}
	}

	entries := r.Entries()
	if len(entries) != 2 || entries[0].Name != "c" || entries[1].Name != "d" {
		t.Errorf("Entries() = %v, want the last two (c, d)", entries)
	}
}
