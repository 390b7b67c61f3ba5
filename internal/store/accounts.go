package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tasteapp/taste-index/internal/domain"
)

// loadAccount reads an account within txn. Returns badger.ErrKeyNotFound if absent.
func loadAccount(txn *badger.Txn, address string) (*domain.Account, error) {
	var acct domain.Account
	if err := getJSON(txn, accountKey(address), &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// putAccount writes acct and its leaderboard entry. Any previous leaderboard
// entry must already be deleted by the caller.
func putAccount(txn *badger.Txn, acct *domain.Account) error {
	if err := setJSON(txn, accountKey(acct.Address), acct); err != nil {
		return err
	}
	active, err := acct.LastActive.UTC().MarshalText()
	if err != nil {
		return err
	}
	return txn.Set(earnedIdxKey(acct), active)
}

// GetAccount retrieves the account for a normalized address.
func (s *Store) GetAccount(ctx context.Context, address string) (*domain.Account, error) {
	var acct *domain.Account
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		acct, err = loadAccount(txn, address)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound(ErrAccountNotFound, address)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// UpdateProfile applies a profile edit, creating the account if needed.
// Derived counters are left untouched.
func (s *Store) UpdateProfile(ctx context.Context, address string, update domain.ProfileUpdate, now time.Time) (*domain.Account, error) {
	var acct *domain.Account
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		acct, err = loadAccount(txn, address)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			acct = domain.NewAccount(address, now)
		case err != nil:
			return err
		default:
			if err := txn.Delete(earnedIdxKey(acct)); err != nil {
				return err
			}
		}

		acct.ApplyProfile(update, now)
		return putAccount(txn, acct)
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Leaderboard walks the earned index, which is ordered by total earned
// descending and then by address, and stops after limit matching accounts.
func (s *Store) Leaderboard(ctx context.Context, limit int, activeSince time.Time) ([]*domain.Account, error) {
	if limit <= 0 {
		return []*domain.Account{}, nil
	}

	accounts := make([]*domain.Account, 0, limit)
	err := s.view(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(accountsEarnedIdxPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var addresses []string
		for it.Rewind(); it.Valid() && len(addresses) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()

			if !activeSince.IsZero() {
				var lastActive time.Time
				err := item.Value(func(val []byte) error {
					return lastActive.UnmarshalText(val)
				})
				if err != nil {
					return corrupt(item.KeyCopy(nil), err)
				}
				if lastActive.Before(activeSince) {
					continue
				}
			}

			// {inverted amount}:{address}
			key := string(item.Key())
			addresses = append(addresses, key[strings.LastIndexByte(key, ':')+1:])
		}

		for _, addr := range addresses {
			acct, err := loadAccount(txn, addr)
			if errors.Is(err, badger.ErrKeyNotFound) {
				s.logger.Warn("leaderboard entry without account", "address", addr)
				continue
			}
			if err != nil {
				return err
			}
			accounts = append(accounts, acct)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

// IsProcessed reports whether an event id is in the processed-event set.
func (s *Store) IsProcessed(ctx context.Context, id domain.EventID) (bool, error) {
	var found bool
	err := s.view(ctx, func(txn *badger.Txn) error {
		var err error
		found, err = exists(txn, eventKey(id))
		return err
	})
	return found, err
}
