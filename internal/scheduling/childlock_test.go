package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestChildLockerLocalMutualExclusion(t *testing.T) {
	locker := NewChildLocker(nil, nil)
	childID := uuid.New()

	var mu sync.Mutex
	inSection := 0
	maxInSection := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(context.Background(), childID)
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			mu.Lock()
			inSection++
			if inSection > maxInSection {
				maxInSection = inSection
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inSection--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	if maxInSection != 1 {
		t.Errorf("expected at most 1 goroutine in critical section, saw %d", maxInSection)
	}
}

func TestChildLockerDifferentChildrenDoNotBlock(t *testing.T) {
	locker := NewChildLocker(nil, nil)

	releaseA, err := locker.Acquire(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Acquire A: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := locker.Acquire(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Acquire B should not block on A's lock: %v", err)
	}
	releaseB()
}

func TestChildLockerRedisLease(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	locker := NewChildLocker(client, nil)
	childID := uuid.New()

	release, err := locker.Acquire(context.Background(), childID)
	require.NoError(t, err)

	// A second acquire must wait until the lease is released.
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(ctx, childID); err == nil {
		t.Fatal("expected second acquire to time out while lease is held")
	}

	release()
	require.False(t, mr.Exists("schedlock:"+childID.String()), "lease key should be deleted on release")

	release2, err := locker.Acquire(context.Background(), childID)
	require.NoError(t, err)
	release2()
}

func TestChildLockerAcquireCancelledContext(t *testing.T) {
	locker := NewChildLocker(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := locker.Acquire(ctx, uuid.New()); err == nil {
		t.Error("expected error for cancelled context")
	}
}
