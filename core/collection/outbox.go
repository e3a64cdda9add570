package collection

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const defaultRetryInterval = 30 * time.Second

type opKind string

const (
	opPut    opKind = "put"
	opDelete opKind = "delete"
)

// pendingWrite is one local mutation not yet acknowledged by the remote store.
type pendingWrite struct {
	Op         opKind          `json:"op"`
	Key        string          `json:"key"`
	Data       json.RawMessage `json:"data,omitempty"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// outbox records pending remote writes and retries them on a ticker until they
// succeed, in enqueue order. The queue is mirrored to the local cache so
// unsynced mutations survive a restart.
type outbox struct {
	name     string
	cacheKey string
	remote   RemoteStore
	cache    Cache
	log      Logger
	interval time.Duration
	onErr    func(error)

	mu    sync.Mutex
	queue []pendingWrite

	done    chan struct{}
	stopped sync.Once
}

func newOutbox(name string, remote RemoteStore, cache Cache, log Logger, interval time.Duration, onErr func(error)) *outbox {
	if interval <= 0 {
		interval = defaultRetryInterval
	}
	ob := &outbox{
		name:     name,
		cacheKey: name + ".outbox",
		remote:   remote,
		cache:    cache,
		log:      log,
		interval: interval,
		onErr:    onErr,
		done:     make(chan struct{}),
	}
	ob.restore()
	return ob
}

func (ob *outbox) restore() {
	data, err := ob.cache.Get(ob.cacheKey)
	if err != nil {
		if err != ErrCacheMiss {
			ob.log.Warn("outbox: reading cache failed", ob.name, err)
		}
		return
	}
	if err := json.Unmarshal(data, &ob.queue); err != nil {
		ob.log.Warn("outbox: decoding cache failed", ob.name, err)
	}
}

func (ob *outbox) start() {
	go func() {
		ticker := time.NewTicker(ob.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ob.flush()
			case <-ob.done:
				return
			}
		}
	}()
}

func (ob *outbox) stop() {
	ob.stopped.Do(func() { close(ob.done) })
}

func (ob *outbox) enqueue(w pendingWrite) {
	w.EnqueuedAt = time.Now().UTC()

	ob.mu.Lock()
	ob.queue = append(ob.queue, w)
	ob.persist()
	ob.mu.Unlock()

	// optimistic immediate push; the ticker picks up whatever fails
	go ob.flush()
}

// flush pushes pending writes in order, stopping at the first failure so a
// record's create is never overtaken by its own update or delete.
func (ob *outbox) flush() {
	ctx := context.Background()

	ob.mu.Lock()
	defer ob.mu.Unlock()

	for len(ob.queue) > 0 {
		w := ob.queue[0]

		var err error
		switch w.Op {
		case opPut:
			err = ob.remote.Put(ctx, ob.name, Document{Key: w.Key, Data: w.Data})
		case opDelete:
			err = ob.remote.Delete(ctx, ob.name, w.Key)
		}
		if err != nil {
			ob.queue[0].Attempts++
			ob.persist()
			ob.log.Warn("outbox: remote write failed, will retry", ob.name, w.Key, err)
			if ob.onErr != nil {
				ob.onErr(err)
			}
			return
		}
		ob.queue = ob.queue[1:]
		ob.persist()
	}
}

func (ob *outbox) pending() int {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return len(ob.queue)
}

// persist mirrors the queue to the cache. Callers hold mu.
func (ob *outbox) persist() {
	data, err := json.Marshal(ob.queue)
	if err != nil {
		ob.log.Error("outbox: encoding cache failed", ob.name, err)
		return
	}
	if err := ob.cache.Put(ob.cacheKey, data); err != nil {
		ob.log.Error("outbox: writing cache failed", ob.name, err)
	}
}
