package service

import (
	"sync"
	"testing"
)

func TestSessionLocksSerializeSameKey(t *testing.T) {
	locks := newSessionLocks()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("team-1", "friday")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 32 {
		t.Fatalf("counter = %d, want 32", counter)
	}
}

func TestSessionLocksUnlockReleases(t *testing.T) {
	locks := newSessionLocks()

	unlock := locks.lock("team-1", "friday")
	unlock()

	done := make(chan struct{})
	go func() {
		unlock := locks.lock("team-1", "friday")
		unlock()
		close(done)
	}()
	<-done
}
