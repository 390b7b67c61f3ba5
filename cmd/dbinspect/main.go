// Package main prints counts and sample records from a badger index directory.
//
// Usage:
//
//	DATA_PATH=~/TasteIndex/data go run ./cmd/dbinspect
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/tasteapp/taste-index/internal/domain"
)

var samples = flag.Int("samples", 3, "Sample records to print per section")

// Key prefixes as written by the badger index.
var prefixes = []struct {
	label  string
	prefix string
}{
	{"Posts", "post:"},
	{"Likes", "like:"},
	{"Accounts", "acct:"},
	{"Processed events", "event:"},
	{"Feed index entries", "idx:posts:all:"},
	{"Leaderboard entries", "idx:accounts:earned:"},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/TasteIndex/data")
	}
	dbPath := filepath.Join(dataPath, "index")

	opts := badger.DefaultOptions(dbPath).
		WithReadOnly(true).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open index: %v", err)
	}
	defer db.Close()

	fmt.Printf("=== Index Inspection: %s ===\n\n", dbPath)

	err = db.View(func(txn *badger.Txn) error {
		for _, p := range prefixes {
			fmt.Printf("%-20s %d\n", p.label+":", countPrefix(txn, p.prefix))
		}
		fmt.Println()

		printCheckpoints(txn)
		printSamples[domain.Post](txn, "post:", "Post", func(p domain.Post) {
			fmt.Printf("  %s by %s [%s] likes=%d event=%s\n", p.PostID, p.Creator, p.Category, p.LikeCount, p.EventID)
			fmt.Printf("    %q\n", truncate(p.Caption, 60))
		})
		printSamples[domain.Account](txn, "acct:", "Account", func(a domain.Account) {
			fmt.Printf("  %s earned=%s posts=%d last_active=%s\n", a.Address, a.TotalEarned, a.PostCount, a.LastActive.Format("2006-01-02 15:04"))
		})
		return nil
	})
	if err != nil {
		log.Fatalf("Error iterating index: %v", err)
	}
}

func countPrefix(txn *badger.Txn, prefix string) int {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Rewind(); it.Valid(); it.Next() {
		n++
	}
	return n
}

func printCheckpoints(txn *badger.Txn) {
	const prefix = "meta:checkpoint:"

	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	fmt.Println("=== Checkpoints ===")
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		name := strings.TrimPrefix(string(item.Key()), prefix)
		val, err := item.ValueCopy(nil)
		if err != nil {
			log.Printf("Error reading checkpoint %s: %v", name, err)
			continue
		}
		fmt.Printf("  %s: %s\n", name, val)
	}
	fmt.Println()
}

func printSamples[T any](txn *badger.Txn, prefix, label string, show func(T)) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	fmt.Printf("=== Sample %ss ===\n", label)
	shown := 0
	for it.Rewind(); it.Valid() && shown < *samples; it.Next() {
		item := it.Item()
		err := item.Value(func(val []byte) error {
			var v T
			if err := json.Unmarshal(val, &v); err != nil {
				return err
			}
			show(v)
			return nil
		})
		if err != nil {
			log.Printf("Error reading %s: %v", item.Key(), err)
			continue
		}
		shown++
	}
	fmt.Println()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
