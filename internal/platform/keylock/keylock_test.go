package keylock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	k := New()

	release, err := k.Acquire(context.Background(), "a", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()

	// 解放後は同じキーを即座に取り直せる
	release2, err := k.Acquire(context.Background(), "a", time.Second)
	if err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	release2()
}

func TestAcquireBusyOnTimeout(t *testing.T) {
	k := New()

	release, err := k.Acquire(context.Background(), "a", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	if _, err := k.Acquire(context.Background(), "a", 20*time.Millisecond); err != ErrBusy {
		t.Fatalf("want ErrBusy, got %v", err)
	}
}

func TestDifferentKeysIndependent(t *testing.T) {
	k := New()

	ra, err := k.Acquire(context.Background(), "a", time.Second)
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer ra()

	rb, err := k.Acquire(context.Background(), "b", 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire b should not block on a: %v", err)
	}
	rb()
}

func TestAcquireContextCancel(t *testing.T) {
	k := New()

	release, err := k.Acquire(context.Background(), "a", time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := k.Acquire(ctx, "a", time.Minute); err != ErrBusy {
		t.Fatalf("want ErrBusy on cancelled ctx, got %v", err)
	}
}

func TestSerialization(t *testing.T) {
	k := New()

	var mu sync.Mutex
	inCritical := 0
	maxInCritical := 0

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := k.Acquire(context.Background(), "shared", 5*time.Second)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxInCritical != 1 {
		t.Fatalf("critical section held by %d goroutines at once", maxInCritical)
	}

	// 全員解放済みなのでエントリは回収されている
	k.mu.Lock()
	n := len(k.locks)
	k.mu.Unlock()
	if n != 0 {
		t.Fatalf("lock map not cleaned up: %d entries", n)
	}
}
