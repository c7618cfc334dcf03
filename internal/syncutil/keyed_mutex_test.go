package syncutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex_MutualExclusion(t *testing.T) {
	m := NewKeyedMutex()

	unlock, err := m.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Lock err = %v, want DeadlineExceeded", err)
	}

	unlock()

	unlock2, err := m.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock after unlock failed: %v", err)
	}
	unlock2()
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	m := NewKeyedMutex()

	unlockA, err := m.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock a failed: %v", err)
	}
	defer unlockA()

	// Holding "a" must not block "b".
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := m.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("Lock b blocked by a: %v", err)
	}
	unlockB()
}

func TestKeyedMutex_TableShrinks(t *testing.T) {
	m := NewKeyedMutex()

	unlock, err := m.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	unlock()

	m.mu.Lock()
	n := len(m.locks)
	m.mu.Unlock()
	if n != 0 {
		t.Errorf("lock table has %d entries after release, want 0", n)
	}
}

func TestKeyedMutex_Contention(t *testing.T) {
	m := NewKeyedMutex()

	const workers = 20
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "shared")
			if err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Errorf("counter = %d, want %d", counter, workers)
	}
}
