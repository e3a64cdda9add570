package collection

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

type (
	// Logger is the subset of the app logger the sync engine needs.
	Logger interface {
		Debug(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
	}

	Options[R Record] struct {
		// Name addresses both the remote collection and the local cache entry.
		Name   string
		Remote RemoteStore
		Cache  Cache
		Logger Logger

		// Defaults seeds the Collection when both cache and remote are empty.
		Defaults []R

		// Conflicts reports whether candidate violates a uniqueness
		// precondition against an existing record (eg. same username,
		// case-insensitive). Optional.
		Conflicts func(existing, candidate R) bool

		// RetryInterval paces outbox retries of failed remote writes.
		// Defaults to 30s.
		RetryInterval time.Duration
	}

	// Manager owns the authoritative in-memory Collection of one Record type,
	// mirrors it to the local cache and keeps the remote store eventually
	// consistent with local mutations. Local state is the operational source
	// of truth for the running process; remote failures degrade to
	// "sync later" instead of blocking callers.
	Manager[R Record] struct {
		name      string
		remote    RemoteStore
		cache     Cache
		log       Logger
		conflicts func(existing, candidate R) bool
		ob        *outbox

		// ctx bounds live subscriptions to the Manager's lifetime, never to
		// the caller's; a subscription only ends on Unsubscribe or Close.
		ctx    context.Context
		cancel context.CancelFunc

		mu      sync.RWMutex
		records []R
		slices  map[string][]R // live-subscription slices by filterKey
		subs    map[string]*liveSub
		lastErr error
	}

	liveSub struct {
		sub      Subscription
		finished chan struct{}
	}
)

// NewManager seeds the Collection from the local cache (falling back to
// opts.Defaults) and starts the outbox retry loop. The caller is expected to
// reconcile against the remote store by calling Load, typically in a goroutine.
func NewManager[R Record](opts Options[R]) *Manager[R] {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager[R]{
		name:      opts.Name,
		remote:    opts.Remote,
		cache:     opts.Cache,
		log:       opts.Logger,
		conflicts: opts.Conflicts,
		ctx:       ctx,
		cancel:    cancel,
		slices:    make(map[string][]R),
		subs:      make(map[string]*liveSub),
	}
	m.seed(opts.Defaults)
	m.ob = newOutbox(opts.Name, opts.Remote, opts.Cache, opts.Logger, opts.RetryInterval, m.setErr)
	m.ob.start()
	return m
}

func (m *Manager[R]) seed(defaults []R) {
	data, err := m.cache.Get(m.name)
	if err != nil {
		if err != ErrCacheMiss {
			m.log.Warn("collection: reading cache failed", m.name, err)
		}
		m.records = append(m.records, defaults...)
		return
	}
	var recs []R
	if err := json.Unmarshal(data, &recs); err != nil {
		m.log.Warn("collection: decoding cache failed", m.name, err)
		m.records = append(m.records, defaults...)
		return
	}
	m.records = recs
}

// Load fetches all Records from the remote store. A non-empty result replaces
// the Collection and is persisted to cache; an empty result leaves current
// state untouched and returns ErrCloudEmpty; a fetch failure leaves current
// state untouched and is also recorded as the last sync error.
func (m *Manager[R]) Load(ctx context.Context) error {
	docs, err := m.remote.LoadAll(ctx, m.name)
	if err != nil {
		m.setErr(err)
		return err
	}
	recs := m.decode(docs)
	if len(recs) == 0 {
		return ErrCloudEmpty
	}

	m.mu.Lock()
	m.records = recs
	m.persist()
	m.lastErr = nil
	m.mu.Unlock()
	return nil
}

// Create appends rec to the Collection, persists the cache and pushes the new
// Record to the remote store asynchronously. It fails only on a uniqueness
// conflict; remote failures surface later through LastError.
func (m *Manager[R]) Create(ctx context.Context, rec R) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.conflicts != nil {
		for _, existing := range m.records {
			if m.conflicts(existing, rec) {
				m.mu.Unlock()
				return ErrDuplicate
			}
		}
	}
	m.records = append(m.records, rec)
	m.persist()
	m.mu.Unlock()

	m.ob.enqueue(pendingWrite{Op: opPut, Key: rec.RecordKey(), Data: data})
	return nil
}

// Update applies mutate to the Record stored under key, persists the cache and
// pushes the changed Record asynchronously. Stamping the update timestamp is
// the mutate func's job; the entity services own their time fields.
func (m *Manager[R]) Update(ctx context.Context, key string, mutate func(R) R) (R, error) {
	var zero R

	m.mu.Lock()
	idx := m.index(key)
	if idx < 0 {
		m.mu.Unlock()
		return zero, ErrNotFound
	}
	rec := mutate(m.records[idx])
	data, err := json.Marshal(rec)
	if err != nil {
		m.mu.Unlock()
		return zero, err
	}
	m.records[idx] = rec
	m.persist()
	m.mu.Unlock()

	m.ob.enqueue(pendingWrite{Op: opPut, Key: key, Data: data})
	return rec, nil
}

// Delete removes the Record under key, persists the cache, deletes the remote
// counterpart asynchronously and tears down any live subscription keyed by
// this record. Entities preferring soft deletion flip their flag via Update.
func (m *Manager[R]) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	idx := m.index(key)
	if idx < 0 {
		m.mu.Unlock()
		return ErrNotFound
	}
	m.records = append(m.records[:idx], m.records[idx+1:]...)
	m.persist()
	m.mu.Unlock()

	m.Unsubscribe(key)
	m.ob.enqueue(pendingWrite{Op: opDelete, Key: key})
	return nil
}

// Get returns the Record stored under key.
func (m *Manager[R]) Get(key string) (R, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var zero R
	if idx := m.index(key); idx >= 0 {
		return m.records[idx], nil
	}
	return zero, ErrNotFound
}

// All returns a copy of the current Collection.
func (m *Manager[R]) All() []R {
	return m.Query(nil)
}

// Query filters the Collection in memory; it never touches cache or remote.
// A nil match selects everything.
func (m *Manager[R]) Query(match func(R) bool) []R {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]R, 0, len(m.records))
	for _, rec := range m.records {
		if match == nil || match(rec) {
			res = append(res, rec)
		}
	}
	return res
}

// Sorted is Query followed by a stable in-memory sort.
func (m *Manager[R]) Sorted(match func(R) bool, less func(a, b R) bool) []R {
	res := m.Query(match)
	sort.SliceStable(res, func(i, j int) bool { return less(res[i], res[j]) })
	return res
}

// SubscribeLive opens a standing remote listener for filterKey. Each remote
// change notification replaces the filterKey slice with the full matching set.
// At most one live subscription exists per filterKey; duplicates are no-ops.
// The listener runs on the Manager's own lifetime until Unsubscribe or Close,
// so a short-lived caller context cannot kill it.
func (m *Manager[R]) SubscribeLive(filterKey string, filter Filter, order Order) error {
	m.mu.RLock()
	_, dup := m.subs[filterKey]
	m.mu.RUnlock()
	if dup {
		return nil
	}

	sub, err := m.remote.Subscribe(m.ctx, m.name, filter, order)
	if err != nil {
		m.setErr(err)
		return err
	}
	ls := &liveSub{sub: sub, finished: make(chan struct{})}

	m.mu.Lock()
	if _, dup := m.subs[filterKey]; dup { // lost the race; keep the existing one
		m.mu.Unlock()
		close(ls.finished)
		return sub.Close()
	}
	m.subs[filterKey] = ls
	m.mu.Unlock()

	go m.consume(filterKey, ls)
	return nil
}

func (m *Manager[R]) consume(filterKey string, ls *liveSub) {
	defer close(ls.finished)
	for docs := range ls.sub.Updates() {
		recs := m.decode(docs)
		m.mu.Lock()
		if m.subs[filterKey] == ls { // dropped subscriptions must not write
			m.slices[filterKey] = recs
		}
		m.mu.Unlock()
	}

	// The update stream ended without an Unsubscribe: the remote side tore it
	// down. Deregister so a later SubscribeLive for this filterKey opens a
	// fresh listener instead of hitting the duplicate no-op.
	m.mu.Lock()
	if m.subs[filterKey] != ls {
		m.mu.Unlock()
		return
	}
	delete(m.subs, filterKey)
	delete(m.slices, filterKey)
	m.mu.Unlock()

	_ = ls.sub.Close()
	m.log.Warn("collection: live subscription ended remotely", m.name, filterKey)
}

// Unsubscribe closes the live subscription for filterKey. When it returns, no
// further remote change can mutate the filterKey slice.
func (m *Manager[R]) Unsubscribe(filterKey string) {
	m.mu.Lock()
	ls, ok := m.subs[filterKey]
	delete(m.subs, filterKey)
	m.mu.Unlock()
	if !ok {
		return
	}
	if err := ls.sub.Close(); err != nil {
		m.log.Warn("collection: closing subscription failed", m.name, filterKey, err)
	}
	<-ls.finished
}

// UnsubscribeAll closes every live subscription, eg. on logout, so no update
// is ever delivered to a stale or unauthorized context.
func (m *Manager[R]) UnsubscribeAll() {
	m.mu.RLock()
	keys := make([]string, 0, len(m.subs))
	for key := range m.subs {
		keys = append(keys, key)
	}
	m.mu.RUnlock()
	for _, key := range keys {
		m.Unsubscribe(key)
	}
}

// LiveSlice returns a copy of the current slice for filterKey.
func (m *Manager[R]) LiveSlice(filterKey string) []R {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := make([]R, len(m.slices[filterKey]))
	copy(res, m.slices[filterKey])
	return res
}

// LastError returns the most recent remote sync failure, or nil. Mutating
// operations never propagate remote failures to their callers; this is where
// those failures surface.
func (m *Manager[R]) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// PendingWrites reports the number of local mutations not yet acknowledged by
// the remote store.
func (m *Manager[R]) PendingWrites() int {
	return m.ob.pending()
}

// Close stops the outbox retry loop and tears down all live subscriptions.
// The app never calls this (Managers live for the process); tests do.
func (m *Manager[R]) Close() {
	m.ob.stop()

	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string]*liveSub)
	m.mu.Unlock()
	for _, ls := range subs {
		_ = ls.sub.Close()
		<-ls.finished
	}
	m.cancel()
}

// index returns the position of key in the Collection, or -1. Callers hold mu.
func (m *Manager[R]) index(key string) int {
	for i, rec := range m.records {
		if rec.RecordKey() == key {
			return i
		}
	}
	return -1
}

// persist overwrites the cache entry with the whole serialized Collection.
// Callers hold mu. Cache failures are logged, never propagated: the in-memory
// Collection stays authoritative.
func (m *Manager[R]) persist() {
	data, err := json.Marshal(m.records)
	if err != nil {
		m.log.Error("collection: encoding cache failed", m.name, err)
		return
	}
	if err := m.cache.Put(m.name, data); err != nil {
		m.log.Error("collection: writing cache failed", m.name, err)
	}
}

// decode unmarshals fetched documents, dropping the ones that do not match the
// Record shape (partial success; a bad document never fails the whole batch).
func (m *Manager[R]) decode(docs []Document) []R {
	recs := make([]R, 0, len(docs))
	for _, doc := range docs {
		var rec R
		if err := json.Unmarshal(doc.Data, &rec); err != nil {
			m.log.Debug("collection: skipping undecodable document", m.name, doc.Key, err)
			continue
		}
		recs = append(recs, rec)
	}
	return recs
}

func (m *Manager[R]) setErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
