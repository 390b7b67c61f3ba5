package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"
)

// Stats counts posts, likes, accounts and processed events.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.view(ctx, func(txn *badger.Txn) error {
		counters := []struct {
			prefix string
			dest   *int64
		}{
			{postPrefix, &stats.Posts},
			{likePrefix, &stats.Likes},
			{accountPrefix, &stats.Accounts},
			{eventPrefix, &stats.ProcessedEvents},
		}
		for _, c := range counters {
			n, err := countPrefix(ctx, txn, c.prefix)
			if err != nil {
				return err
			}
			*c.dest = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// countPrefix counts keys under prefix without loading values.
func countPrefix(ctx context.Context, txn *badger.Txn, prefix string) (int64, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	var n int64
	for it.Rewind(); it.Valid(); it.Next() {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		n++
	}
	return n, nil
}
