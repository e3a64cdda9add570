package collection_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tshola/ngoma/core/collection"
	logsvc "github.com/tshola/ngoma/services/logger"
	"github.com/tshola/ngoma/storage/cache/dummycache"
	"github.com/tshola/ngoma/storage/remote/dummyremote"
)

type note struct {
	Key  string `json:"key"`
	Body string `json:"body"`
	Rank int    `json:"rank"`
}

func (n note) RecordKey() string { return n.Key }

var testLogger = logsvc.NewStdLogger(log.New(io.Discard, "", 0))

func newTestManager(t *testing.T, opts collection.Options[note]) (*collection.Manager[note], *dummyremote.Store, *dummycache.Cache) {
	t.Helper()
	if opts.Name == "" {
		opts.Name = "notes"
	}
	remote, ok := opts.Remote.(*dummyremote.Store)
	if !ok {
		remote = dummyremote.New()
		opts.Remote = remote
	}
	cache, ok := opts.Cache.(*dummycache.Cache)
	if !ok {
		cache = dummycache.New()
		opts.Cache = cache
	}
	opts.Logger = testLogger
	if opts.RetryInterval == 0 {
		opts.RetryInterval = 10 * time.Millisecond
	}
	mgr := collection.NewManager(opts)
	t.Cleanup(mgr.Close)
	return mgr, remote, cache
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never held")
}

func TestManagerCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr, _, cache := newTestManager(t, collection.Options[note]{})

	want := []note{{Key: "a", Body: "first"}, {Key: "b", Body: "second", Rank: 2}}
	for _, n := range want {
		if err := mgr.Create(ctx, n); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	// a fresh Manager over the same cache sees the same records
	reloaded, _, _ := newTestManager(t, collection.Options[note]{Cache: cache})
	if diff := cmp.Diff(want, reloaded.All()); diff != "" {
		t.Errorf("reloaded collection mismatch (-want +got):\n%s", diff)
	}
}

func TestManagerDefaults(t *testing.T) {
	defaults := []note{{Key: "builtin", Body: "starter"}}
	mgr, _, _ := newTestManager(t, collection.Options[note]{Defaults: defaults})
	if diff := cmp.Diff(defaults, mgr.All()); diff != "" {
		t.Errorf("default seed mismatch (-want +got):\n%s", diff)
	}

	// a cached state wins over defaults
	ctx := context.Background()
	cache := dummycache.New()
	seeded, _, _ := newTestManager(t, collection.Options[note]{Cache: cache})
	if err := seeded.Create(ctx, note{Key: "x"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	again, _, _ := newTestManager(t, collection.Options[note]{Cache: cache, Defaults: defaults})
	if got := again.All(); len(got) != 1 || got[0].Key != "x" {
		t.Errorf("All() = %+v, want the cached record only", got)
	}
}

func TestManagerLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("empty remote preserves local state", func(t *testing.T) {
		mgr, remote, _ := newTestManager(t, collection.Options[note]{})
		if err := mgr.Create(ctx, note{Key: "kept"}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		// wait for the outbox to sync, then empty the remote so the fetch
		// comes back with nothing
		waitFor(t, func() bool { return remote.Len("notes") == 1 })
		if err := remote.Delete(ctx, "notes", "kept"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		if err := mgr.Load(ctx); !errors.Is(err, collection.ErrCloudEmpty) {
			t.Errorf("Load() error = %v, want ErrCloudEmpty", err)
		}
		if got := mgr.All(); len(got) != 1 || got[0].Key != "kept" {
			t.Errorf("All() = %+v, want local state untouched", got)
		}
	})

	t.Run("non-empty remote replaces local state", func(t *testing.T) {
		mgr, remote, _ := newTestManager(t, collection.Options[note]{Defaults: []note{{Key: "stale"}}})
		if err := remote.SeedDocument("notes", "a", note{Key: "a", Body: "remote"}); err != nil {
			t.Fatalf("SeedDocument() error = %v", err)
		}
		if err := mgr.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if diff := cmp.Diff([]note{{Key: "a", Body: "remote"}}, mgr.All()); diff != "" {
			t.Errorf("Load() result mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("undecodable documents are skipped", func(t *testing.T) {
		mgr, remote, _ := newTestManager(t, collection.Options[note]{})
		if err := remote.SeedDocument("notes", "good", note{Key: "good"}); err != nil {
			t.Fatalf("SeedDocument() error = %v", err)
		}
		if err := remote.SeedDocument("notes", "bad", "not a note"); err != nil {
			t.Fatalf("SeedDocument() error = %v", err)
		}
		if err := mgr.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := mgr.All(); len(got) != 1 || got[0].Key != "good" {
			t.Errorf("All() = %+v, want the decodable record only", got)
		}
	})

	t.Run("fetch failure is recorded", func(t *testing.T) {
		mgr, remote, _ := newTestManager(t, collection.Options[note]{})
		boom := errors.New("network down")
		remote.FailWith(boom)
		if err := mgr.Load(ctx); !errors.Is(err, boom) {
			t.Errorf("Load() error = %v, want %v", err, boom)
		}
		if err := mgr.LastError(); !errors.Is(err, boom) {
			t.Errorf("LastError() = %v, want %v", err, boom)
		}

		// a later successful load clears the error
		remote.FailWith(nil)
		if err := remote.SeedDocument("notes", "a", note{Key: "a"}); err != nil {
			t.Fatalf("SeedDocument() error = %v", err)
		}
		if err := mgr.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := mgr.LastError(); err != nil {
			t.Errorf("LastError() = %v, want nil", err)
		}
	})
}

func TestManagerCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t, collection.Options[note]{
		Conflicts: func(existing, candidate note) bool { return existing.Body == candidate.Body },
	})

	if err := mgr.Create(ctx, note{Key: "a", Body: "same"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mgr.Create(ctx, note{Key: "b", Body: "same"}); !errors.Is(err, collection.ErrDuplicate) {
		t.Errorf("Create() error = %v, want ErrDuplicate", err)
	}
	if got := mgr.All(); len(got) != 1 {
		t.Errorf("len(All()) = %d, want 1; a rejected create must not mutate state", len(got))
	}
}

func TestManagerUpdateDelete(t *testing.T) {
	ctx := context.Background()
	mgr, remote, _ := newTestManager(t, collection.Options[note]{})

	if err := mgr.Create(ctx, note{Key: "a", Rank: 1}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := mgr.Update(ctx, "a", func(n note) note { n.Rank = 9; return n })
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Rank != 9 {
		t.Errorf("Update() Rank = %d, want 9", got.Rank)
	}
	if _, err := mgr.Update(ctx, "nope", func(n note) note { return n }); !errors.Is(err, collection.ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}

	// the update reaches the remote store
	waitFor(t, func() bool {
		_, ok := remote.Document("notes", "a")
		return ok && mgr.PendingWrites() == 0
	})

	if err := mgr.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := mgr.Get("a"); !errors.Is(err, collection.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := mgr.Delete(ctx, "a"); !errors.Is(err, collection.ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
	waitFor(t, func() bool { return remote.Len("notes") == 0 })
}

func TestManagerQuery(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t, collection.Options[note]{})
	for _, n := range []note{{Key: "a", Rank: 3}, {Key: "b", Rank: 1}, {Key: "c", Rank: 2}} {
		if err := mgr.Create(ctx, n); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	got := mgr.Query(func(n note) bool { return n.Rank >= 2 })
	if len(got) != 2 {
		t.Fatalf("len(Query()) = %d, want 2", len(got))
	}

	// mutating a query result must not touch the collection
	got[0].Body = "tampered"
	fresh, err := mgr.Get(got[0].Key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fresh.Body != "" {
		t.Error("mutating a Query() result leaked into the collection")
	}

	sorted := mgr.Sorted(nil, func(a, b note) bool { return a.Rank < b.Rank })
	for i, want := range []string{"b", "c", "a"} {
		if sorted[i].Key != want {
			t.Errorf("Sorted()[%d].Key = %s, want %s", i, sorted[i].Key, want)
		}
	}
}

func TestManagerSubscribeLive(t *testing.T) {
	ctx := context.Background()
	mgr, remote, _ := newTestManager(t, collection.Options[note]{})

	filter := collection.Filter{Field: "rank", Value: 1}
	order := collection.Order{Field: "key"}
	if err := mgr.SubscribeLive("rank1", filter, order); err != nil {
		t.Fatalf("SubscribeLive() error = %v", err)
	}
	// duplicate subscribes are no-ops
	if err := mgr.SubscribeLive("rank1", filter, order); err != nil {
		t.Fatalf("SubscribeLive() twice error = %v", err)
	}

	if err := remote.Put(ctx, "notes", mustDoc(t, note{Key: "a", Rank: 1})); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := remote.Put(ctx, "notes", mustDoc(t, note{Key: "b", Rank: 2})); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	waitFor(t, func() bool {
		live := mgr.LiveSlice("rank1")
		return len(live) == 1 && live[0].Key == "a"
	})

	// once unsubscribed, no further change may mutate the slice
	mgr.Unsubscribe("rank1")
	if err := remote.Put(ctx, "notes", mustDoc(t, note{Key: "c", Rank: 1})); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if live := mgr.LiveSlice("rank1"); len(live) != 1 || live[0].Key != "a" {
		t.Errorf("LiveSlice() after Unsubscribe = %+v, want the last snapshot", live)
	}
}

func TestManagerSubscribeLiveRemoteTeardown(t *testing.T) {
	ctx := context.Background()
	mgr, remote, _ := newTestManager(t, collection.Options[note]{})

	filter := collection.Filter{Field: "rank", Value: 1}
	order := collection.Order{Field: "key"}
	if err := mgr.SubscribeLive("rank1", filter, order); err != nil {
		t.Fatalf("SubscribeLive() error = %v", err)
	}
	if err := remote.Put(ctx, "notes", mustDoc(t, note{Key: "a", Rank: 1})); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	waitFor(t, func() bool { return len(mgr.LiveSlice("rank1")) == 1 })

	// the remote side severs the stream; the dead entry must not shadow a
	// later subscription for the same filterKey
	remote.DropSubscriptions("notes")
	waitFor(t, func() bool { return len(mgr.LiveSlice("rank1")) == 0 })

	if err := mgr.SubscribeLive("rank1", filter, order); err != nil {
		t.Fatalf("SubscribeLive() after teardown error = %v", err)
	}
	if err := remote.Put(ctx, "notes", mustDoc(t, note{Key: "b", Rank: 1})); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	waitFor(t, func() bool { return len(mgr.LiveSlice("rank1")) == 2 })
}

func mustDoc(t *testing.T, n note) collection.Document {
	t.Helper()
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatal(err)
	}
	return collection.Document{Key: n.Key, Data: data}
}
