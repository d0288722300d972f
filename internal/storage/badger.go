package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/maauso/audiobook-skill/internal/session"
)

const attributesPrefix = "attr:"

// Compile-time check that BadgerStorage implements AttributeStore.
var _ AttributeStore = (*BadgerStorage)(nil)

// BadgerStorage keeps attributes in an embedded Badger database, one JSON
// value per device under the key "attr:<deviceID>".
type BadgerStorage struct {
	db *badger.DB
}

// NewBadgerStorage opens the database at path. An empty path opens an
// in-memory database.
func NewBadgerStorage(path string) (*BadgerStorage, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
		opts.SyncWrites = true
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

// Close closes the database.
func (s *BadgerStorage) Close() error {
	return s.db.Close()
}

// Load reads the attributes of deviceID.
func (s *BadgerStorage) Load(_ context.Context, deviceID string) (session.Attributes, error) {
	var attrs session.Attributes
	if deviceID == "" {
		return attrs, ErrDeviceIDRequired
	}

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(attributesPrefix + deviceID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &attrs)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return session.Attributes{}, nil
	}
	if err != nil {
		return session.Attributes{}, fmt.Errorf("get attributes: %w", err)
	}
	return attrs, nil
}

// Save writes the attributes of deviceID.
func (s *BadgerStorage) Save(_ context.Context, deviceID string, attrs session.Attributes) error {
	if deviceID == "" {
		return ErrDeviceIDRequired
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(attributesPrefix+deviceID), data)
	})
	if err != nil {
		return fmt.Errorf("set attributes: %w", err)
	}
	return nil
}
