package forgellm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDeduplicationSingleOwner(t *testing.T) {
	dt := NewDeduplicationTracker()

	entry1, owner1 := dt.GetOrCreateEntry("key")
	entry2, owner2 := dt.GetOrCreateEntry("key")

	if !owner1 {
		t.Error("expected first caller to own the entry")
	}
	if owner2 {
		t.Error("expected second caller to wait")
	}
	if entry1 != entry2 {
		t.Error("expected both callers to share the entry")
	}
}

func TestDeduplicationWaitersReceiveResult(t *testing.T) {
	dt := NewDeduplicationTracker()

	_, owner := dt.GetOrCreateEntry("key")
	if !owner {
		t.Fatal("expected ownership")
	}

	want := testResponse("shared")
	var wg sync.WaitGroup
	results := make([]*ChatResponse, 5)

	for i := 0; i < 5; i++ {
		entry, isOwner := dt.GetOrCreateEntry("key")
		if isOwner {
			t.Fatal("expected waiter, got owner")
		}
		wg.Add(1)
		go func(i int, entry *DeduplicationEntry) {
			defer wg.Done()
			resp, err := entry.Wait(context.Background())
			if err != nil {
				t.Errorf("waiter %d: unexpected error %v", i, err)
				return
			}
			results[i] = resp
		}(i, entry)
	}

	dt.Complete("key", want, nil)
	wg.Wait()

	for i, resp := range results {
		if resp != want {
			t.Errorf("waiter %d: expected shared response, got %+v", i, resp)
		}
	}
}

func TestDeduplicationPropagatesError(t *testing.T) {
	dt := NewDeduplicationTracker()

	_, _ = dt.GetOrCreateEntry("key")
	entry, _ := dt.GetOrCreateEntry("key")

	wantErr := NewTimeoutError("openai", "deadline blown")
	dt.Complete("key", nil, wantErr)

	_, err := entry.Wait(context.Background())
	if !errors.Is(err, wantErr) {
		t.Errorf("expected owner error to propagate, got %v", err)
	}
}

func TestDeduplicationWaitCancellation(t *testing.T) {
	dt := NewDeduplicationTracker()

	_, _ = dt.GetOrCreateEntry("key")
	entry, _ := dt.GetOrCreateEntry("key")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := entry.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context deadline error, got %v", err)
	}
}

func TestDeduplicationCleanup(t *testing.T) {
	dt := NewDeduplicationTracker()

	_, _ = dt.GetOrCreateEntry("key")
	if dt.InFlight() != 1 {
		t.Fatalf("expected 1 in-flight entry, got %d", dt.InFlight())
	}

	dt.Complete("key", testResponse("done"), nil)

	deadline := time.Now().Add(time.Second)
	for dt.InFlight() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expected entry to be cleaned up after completion")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestDeduplicationCompleteUnknownKey(t *testing.T) {
	dt := NewDeduplicationTracker()
	// Must not panic.
	dt.Complete("missing", nil, nil)
}
