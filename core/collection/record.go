package collection

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// errors
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("a record with these unique fields already exists")
	ErrCloudEmpty = errors.New("remote collection is empty")
	ErrCacheMiss  = errors.New("cache entry not found")
)

type (
	// Record is one entity instance held in a Manager's Collection.
	// Its key is stable for its lifetime and never reused after deletion.
	Record interface {
		RecordKey() string
	}

	// Document is the remote representation of a Record: an opaque field
	// mapping addressed by the Record's key inside a named remote collection.
	Document struct {
		Key  string          `json:"key"`
		Data json.RawMessage `json:"data"`
	}

	// Filter is a field-equality filter applied by the remote store.
	Filter struct {
		Field string
		Value interface{}
	}

	// Order tells the remote store how to sort matched documents.
	Order struct {
		Field      string
		Descending bool
	}

	// Cache is a durable local key-value store holding one serialized
	// Collection per key. It is read once at startup and overwritten
	// wholesale on every mutation.
	Cache interface {
		// Get returns ErrCacheMiss when no entry exists for key.
		Get(key string) ([]byte, error)
		Put(key string, data []byte) error
	}

	// RemoteStore is the hosted document database: the durable source of
	// truth when reachable. Implementations report failures through their
	// own error surface; callers treat them as a binary success/failure.
	RemoteStore interface {
		LoadAll(ctx context.Context, collection string) ([]Document, error)
		Put(ctx context.Context, collection string, doc Document) error
		Delete(ctx context.Context, collection, key string) error
		// Subscribe opens a standing change listener scoped by filter,
		// ordered by order. Each notification carries the full matching
		// document set, not a delta.
		Subscribe(ctx context.Context, collection string, filter Filter, order Order) (Subscription, error)
	}

	// Subscription is a live remote listener. Updates is closed when the
	// subscription is closed or the remote tears it down.
	Subscription interface {
		Updates() <-chan []Document
		Close() error
	}
)
