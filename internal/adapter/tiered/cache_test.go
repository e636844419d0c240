package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relayops/relay/internal/adapter/tiered"
)

type fakeCache struct {
	data   map[string][]byte
	getErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func TestGetPrefersLocalTier(t *testing.T) {
	l1, l2 := newFakeCache(), newFakeCache()
	c := tiered.New(l1, l2, time.Minute)

	l1.data["decision.req-1"] = []byte(`{"provider":"shell"}`)
	l2.data["decision.req-1"] = []byte(`{"provider":"stale"}`)

	val, found, err := c.Get(context.Background(), "decision.req-1")
	if err != nil || !found {
		t.Fatalf("Get = %v, found=%v", err, found)
	}
	if string(val) != `{"provider":"shell"}` {
		t.Fatalf("expected L1 value, got %s", val)
	}
}

func TestGetCopiesSharedHitIntoLocalTier(t *testing.T) {
	l1, l2 := newFakeCache(), newFakeCache()
	c := tiered.New(l1, l2, time.Minute)

	l2.data["decision.req-2"] = []byte(`{"provider":"http"}`)

	val, found, err := c.Get(context.Background(), "decision.req-2")
	if err != nil || !found {
		t.Fatalf("Get = %v, found=%v", err, found)
	}
	if string(val) != `{"provider":"http"}` {
		t.Fatalf("unexpected value %s", val)
	}
	if got := string(l1.data["decision.req-2"]); got != `{"provider":"http"}` {
		t.Fatalf("expected L1 backfill, got %q", got)
	}
}

func TestGetFallsThroughOnLocalTierError(t *testing.T) {
	l1, l2 := newFakeCache(), newFakeCache()
	l1.getErr = errors.New("l1 unavailable")
	c := tiered.New(l1, l2, time.Minute)

	l2.data["decision.req-3"] = []byte("v")

	val, found, err := c.Get(context.Background(), "decision.req-3")
	if err != nil {
		t.Fatalf("expected L1 error to be absorbed, got %v", err)
	}
	if !found || string(val) != "v" {
		t.Fatalf("expected L2 hit, found=%v val=%s", found, val)
	}
}

func TestGetMiss(t *testing.T) {
	c := tiered.New(newFakeCache(), newFakeCache(), time.Minute)

	_, found, err := c.Get(context.Background(), "decision.unknown")
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestSetAndDeleteTouchBothTiers(t *testing.T) {
	l1, l2 := newFakeCache(), newFakeCache()
	c := tiered.New(l1, l2, time.Minute)
	ctx := context.Background()

	if err := c.Set(ctx, "decision.req-4", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	for name, fc := range map[string]*fakeCache{"l1": l1, "l2": l2} {
		if _, ok := fc.data["decision.req-4"]; !ok {
			t.Fatalf("expected key in %s", name)
		}
	}

	if err := c.Delete(ctx, "decision.req-4"); err != nil {
		t.Fatal(err)
	}
	for name, fc := range map[string]*fakeCache{"l1": l1, "l2": l2} {
		if _, ok := fc.data["decision.req-4"]; ok {
			t.Fatalf("expected key deleted from %s", name)
		}
	}
}
