package peers

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestHostKey(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"127.0.0.1:4542", "127.0.0.1"},
		{"127.0.0.1", "127.0.0.1"},
		{"[::ffff:10.0.0.7]:3874", "10.0.0.7"},
		{"[::1]:3874", "::1"},
		{"gateway.local:4542", "gateway.local"},
		{"", ""},
	}

	for _, tc := range tests {
		if got := HostKey(tc.addr); got != tc.want {
			t.Errorf("HostKey(%q) = %q, want %q", tc.addr, got, tc.want)
		}
	}
}

func TestTablePutGet(t *testing.T) {
	table, err := NewTable(TableConfig{})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	if err := table.Put("127.0.0.1:50000", []byte("first")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// The port is ignored: a later connection from the same host matches.
	got, err := table.Get("127.0.0.1:50123")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("Get = %q, want first", got)
	}

	// Re-registration overwrites.
	if err := table.Put("127.0.0.1:1", []byte("second")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, _ = table.Get("127.0.0.1")
	if string(got) != "second" {
		t.Errorf("Get after overwrite = %q, want second", got)
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
}

func TestTableGetMissingDoesNotCreate(t *testing.T) {
	table, _ := NewTable(TableConfig{})

	if _, err := table.Get("10.1.2.3:4"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Get error = %v, want ErrNotRegistered", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len = %d after failed lookup, want 0", table.Len())
	}
}

func TestTableReturnsCopies(t *testing.T) {
	table, _ := NewTable(TableConfig{})

	h := []byte("hash")
	table.Put("1.1.1.1", h)
	h[0] = 'X'

	got, _ := table.Get("1.1.1.1")
	if string(got) != "hash" {
		t.Errorf("stored value aliased caller slice: %q", got)
	}
	got[0] = 'Y'
	again, _ := table.Get("1.1.1.1")
	if !bytes.Equal(again, []byte("hash")) {
		t.Errorf("returned value aliased table: %q", again)
	}
}

func TestTableRemoveAndEmpty(t *testing.T) {
	table, _ := NewTable(TableConfig{})

	if err := table.Put("", []byte("x")); !errors.Is(err, ErrEmptyAddress) {
		t.Errorf("Put(\"\") error = %v, want ErrEmptyAddress", err)
	}

	table.Put("2.2.2.2:1", []byte("x"))
	if err := table.Remove("2.2.2.2:9"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := table.Remove("2.2.2.2:9"); err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if table.Len() != 0 {
		t.Errorf("Len = %d, want 0", table.Len())
	}
}

func TestTableStore(t *testing.T) {
	store := NewMemoryStore(map[string]string{"127.0.0.1:999": "loaded"})

	table, err := NewTable(TableConfig{Store: store})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}

	got, err := table.Get("127.0.0.1")
	if err != nil || string(got) != "loaded" {
		t.Fatalf("Get = %q, %v; want loaded", got, err)
	}

	table.Put("10.0.0.1:5", []byte("new"))
	if store.Saves() != 1 {
		t.Errorf("Saves = %d, want 1", store.Saves())
	}

	saved, _ := store.Load()
	if saved["10.0.0.1"] != "new" || saved["127.0.0.1"] != "loaded" {
		t.Errorf("saved = %v", saved)
	}

	// A fresh table over the same store sees both entries.
	reopened, _ := NewTable(TableConfig{Store: store})
	if reopened.Len() != 2 {
		t.Errorf("reopened Len = %d, want 2", reopened.Len())
	}
}

func TestTableConcurrent(t *testing.T) {
	table, _ := NewTable(TableConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addr := fmt.Sprintf("10.0.0.%d:1", i)
			table.Put(addr, []byte(addr))
			if _, err := table.Get(addr); err != nil {
				t.Errorf("Get(%s) failed: %v", addr, err)
			}
		}(i)
	}
	wg.Wait()

	if table.Len() != 32 {
		t.Errorf("Len = %d, want 32", table.Len())
	}
}

// flakyStore loads entries and fails every Save once broken is set.
type flakyStore struct {
	entries map[string]string
	broken  bool
}

func (s *flakyStore) Load() (map[string]string, error) { return s.entries, nil }

func (s *flakyStore) Save(map[string]string) error {
	if s.broken {
		return errors.New("disk full")
	}
	return nil
}

func TestTableSaveFailureRollsBack(t *testing.T) {
	store := &flakyStore{entries: map[string]string{"10.0.0.1": "old"}}
	table, err := NewTable(TableConfig{Store: store})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	store.broken = true

	if err := table.Put("10.0.0.1:5", []byte("new")); err == nil {
		t.Fatal("Put succeeded with a failing store")
	}
	if got, _ := table.Get("10.0.0.1"); string(got) != "old" {
		t.Errorf("Get after failed overwrite = %q, want old", got)
	}

	if err := table.Put("10.0.0.2:5", []byte("fresh")); err == nil {
		t.Fatal("Put succeeded with a failing store")
	}
	if _, err := table.Get("10.0.0.2"); !errors.Is(err, ErrNotRegistered) {
		t.Errorf("Get after failed insert error = %v, want ErrNotRegistered", err)
	}

	if err := table.Remove("10.0.0.1"); err == nil {
		t.Fatal("Remove succeeded with a failing store")
	}
	if table.Len() != 1 {
		t.Errorf("Len = %d, want 1", table.Len())
	}
}
