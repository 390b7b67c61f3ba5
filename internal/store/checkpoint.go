package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/tasteapp/taste-index/internal/domain"
)

// GetCheckpoint returns the event id stored under name, or the zero id if none.
func (s *Store) GetCheckpoint(ctx context.Context, name string) (domain.EventID, error) {
	var id domain.EventID
	err := s.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if err := id.UnmarshalText(val); err != nil {
				return corrupt(checkpointKey(name), err)
			}
			return nil
		})
	})
	return id, err
}

// SetCheckpoint stores id under name.
func (s *Store) SetCheckpoint(ctx context.Context, name string, id domain.EventID) error {
	text, err := id.MarshalText()
	if err != nil {
		return err
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(name), text)
	})
}
