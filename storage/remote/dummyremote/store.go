package dummyremote

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/tshola/ngoma/core/collection"
)

type (
	// Store is an in-memory collection.RemoteStore used by tests and offline
	// development. Subscriptions get the full matching document set on open
	// and again after every write touching their collection.
	Store struct {
		mu          sync.RWMutex
		collections map[string]map[string]collection.Document
		subs        map[*subscription]struct{}

		failWith error
	}

	subscription struct {
		store      *Store
		collection string
		filter     collection.Filter
		order      collection.Order
		ch         chan []collection.Document
		closeOnce  sync.Once
	}
)

var _ collection.RemoteStore = (*Store)(nil)

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]collection.Document),
		subs:        make(map[*subscription]struct{}),
	}
}

func (s *Store) LoadAll(ctx context.Context, name string) ([]collection.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.failWith != nil {
		return nil, s.failWith
	}
	docs := make([]collection.Document, 0, len(s.collections[name]))
	for _, doc := range s.collections[name] {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *Store) Put(ctx context.Context, name string, doc collection.Document) error {
	s.mu.Lock()
	if s.failWith != nil {
		s.mu.Unlock()
		return s.failWith
	}
	if s.collections[name] == nil {
		s.collections[name] = make(map[string]collection.Document)
	}
	s.collections[name][doc.Key] = doc
	s.mu.Unlock()

	s.notify(name)
	return nil
}

func (s *Store) Delete(ctx context.Context, name, key string) error {
	s.mu.Lock()
	if s.failWith != nil {
		s.mu.Unlock()
		return s.failWith
	}
	delete(s.collections[name], key)
	s.mu.Unlock()

	s.notify(name)
	return nil
}

func (s *Store) Subscribe(ctx context.Context, name string, filter collection.Filter, order collection.Order) (collection.Subscription, error) {
	s.mu.Lock()
	if s.failWith != nil {
		s.mu.Unlock()
		return nil, s.failWith
	}
	sub := &subscription{
		store:      s,
		collection: name,
		filter:     filter,
		order:      order,
		ch:         make(chan []collection.Document, 16),
	}
	s.subs[sub] = struct{}{}
	snapshot := s.matching(sub)
	s.mu.Unlock()

	sub.ch <- snapshot
	return sub, nil
}

// SeedDocument puts a document without notifying subscribers; handy for
// arranging test state.
func (s *Store) SeedDocument(name string, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collections[name] == nil {
		s.collections[name] = make(map[string]collection.Document)
	}
	s.collections[name][key] = collection.Document{Key: key, Data: data}
	return nil
}

// Document returns the stored document and whether it exists.
func (s *Store) Document(name, key string) (collection.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[name][key]
	return doc, ok
}

// Len reports the number of documents in a collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[name])
}

// DropSubscriptions severs every open subscription on a collection from the
// remote side, closing its update channel the way a dying change stream does.
func (s *Store) DropSubscriptions(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if sub.collection != name {
			continue
		}
		delete(s.subs, sub)
		sub.closeOnce.Do(func() { close(sub.ch) })
	}
}

// FailWith makes all subsequent operations return err; nil restores normal
// behavior.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *Store) notify(name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for sub := range s.subs {
		if sub.collection != name {
			continue
		}
		snapshot := s.matching(sub)
		select {
		case sub.ch <- snapshot:
		default: // slow consumer; it will catch up on the next change
		}
	}
}

// matching recomputes the full document set for a subscription. Callers hold mu.
func (s *Store) matching(sub *subscription) []collection.Document {
	docs := make([]collection.Document, 0)
	for _, doc := range s.collections[sub.collection] {
		if matches(doc, sub.filter) {
			docs = append(docs, doc)
		}
	}
	sortDocs(docs, sub.order)
	return docs
}

func matches(doc collection.Document, filter collection.Filter) bool {
	if filter.Field == "" {
		return true
	}
	fields := decodeFields(doc)
	want, _ := json.Marshal(filter.Value)
	got, _ := json.Marshal(fields[filter.Field])
	return string(want) == string(got)
}

func sortDocs(docs []collection.Document, order collection.Order) {
	if order.Field == "" {
		sort.Slice(docs, func(i, j int) bool { return docs[i].Key < docs[j].Key })
		return
	}
	key := func(doc collection.Document) string {
		val, _ := json.Marshal(decodeFields(doc)[order.Field])
		return string(val)
	}
	sort.Slice(docs, func(i, j int) bool {
		if order.Descending {
			return key(docs[i]) > key(docs[j])
		}
		return key(docs[i]) < key(docs[j])
	})
}

func decodeFields(doc collection.Document) map[string]interface{} {
	var fields map[string]interface{}
	_ = json.Unmarshal(doc.Data, &fields)
	return fields
}

func (sub *subscription) Updates() <-chan []collection.Document {
	return sub.ch
}

func (sub *subscription) Close() error {
	sub.store.mu.Lock()
	delete(sub.store.subs, sub)
	sub.store.mu.Unlock()

	sub.closeOnce.Do(func() { close(sub.ch) })
	return nil
}
