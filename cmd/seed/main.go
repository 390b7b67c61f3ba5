// Package main writes a demo ledger export of minted posts and likes.
//
// The facts are appended to the JSONL export the file ledger source tails,
// and optionally published to a Kafka topic.
//
// Usage:
//
//	go run ./cmd/seed -out ~/TasteIndex/data/ledger.jsonl
//	go run ./cmd/seed -kafka-brokers localhost:9092 -kafka-topic taste.facts
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tasteapp/taste-index/internal/domain"
	"github.com/tasteapp/taste-index/internal/ledger"
)

var (
	out          = flag.String("out", os.ExpandEnv("$HOME/TasteIndex/data/ledger.jsonl"), "JSONL export to append to")
	users        = flag.Int("users", 8, "Number of creator accounts")
	posts        = flag.Int("posts", 40, "Number of posts to mint")
	likes        = flag.Int("likes", 150, "Number of likes to attempt; self-likes and repeats are skipped")
	seed         = flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	kafkaBrokers = flag.String("kafka-brokers", "", "Also publish to these comma-separated Kafka brokers")
	kafkaTopic   = flag.String("kafka-topic", "taste.facts", "Kafka topic to publish to")
)

var captions = []string{
	"Crispy chili oil noodles, way too much garlic",
	"Grandma's brisket, eight hours low and slow",
	"Miso caramel tart from the corner bakery",
	"Sourdough attempt number twelve",
	"Street tacos al pastor with grilled pineapple",
	"Cacio e pepe that finally did not clump",
	"Matcha soft serve on a hot afternoon",
	"Braised short ribs with gochujang glaze",
}

func main() {
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed)) //#nosec G404 -- demo data
	facts := generate(rng, time.Now().UTC().Add(-72*time.Hour))

	if err := os.MkdirAll(filepath.Dir(*out), 0o750); err != nil {
		log.Fatalf("Failed to create export directory: %v", err)
	}
	file := ledger.NewFileLedger(*out, slog.Default())
	if err := file.Append(facts...); err != nil {
		log.Fatalf("Failed to write export: %v", err)
	}
	fmt.Printf("Appended %d facts to %s\n", len(facts), *out)

	if brokers := ledger.ParseBrokers(*kafkaBrokers); len(brokers) > 0 {
		pub := ledger.NewKafkaPublisher(ledger.KafkaConfig{Brokers: brokers, Topic: *kafkaTopic})
		defer pub.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := pub.Publish(ctx, facts...); err != nil {
			log.Fatalf("Failed to publish to kafka: %v", err)
		}
		fmt.Printf("Published %d facts to %s\n", len(facts), *kafkaTopic)
	}
}

// generate mints posts and then likes them in ledger order. Each fact gets
// its own transaction hash derived from the seed so reruns with the same seed
// produce the same event ids.
func generate(rng *rand.Rand, start time.Time) []domain.Fact {
	addrs := make([]string, *users)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("0x%040x", rng.Uint64())
	}

	var (
		facts   []domain.Fact
		tx      uint64
		at      = start
		creator = make(map[string]string, *posts)
		postIDs = make([]string, 0, *posts)
	)
	nextID := func() domain.EventID {
		tx++
		return domain.EventID{TxHash: fmt.Sprintf("0x%048x%016x", uint64(*seed), tx)}
	}
	tick := func() time.Time {
		at = at.Add(time.Duration(1+rng.Intn(90)) * time.Minute)
		return at
	}

	for n := range *posts {
		postID := strconv.Itoa(1000 + n)
		owner := addrs[rng.Intn(len(addrs))]
		rating := 1 + rng.Intn(5)
		facts = append(facts, domain.NewMintedFact(nextID(), tick(), domain.PostMinted{
			Creator:    owner,
			PostID:     postID,
			ContentRef: fmt.Sprintf("ipfs://bafydemo%06d", n),
			Caption:    captions[rng.Intn(len(captions))],
			Category:   string(domain.Categories[rng.Intn(len(domain.Categories))]),
			Rating:     &rating,
			Reward:     domain.NewAmount(10),
		}))
		creator[postID] = owner
		postIDs = append(postIDs, postID)
	}

	seen := make(map[string]bool)
	for range *likes {
		if len(postIDs) == 0 {
			break
		}
		postID := postIDs[rng.Intn(len(postIDs))]
		liker := addrs[rng.Intn(len(addrs))]
		if liker == creator[postID] || seen[postID+liker] {
			continue
		}
		seen[postID+liker] = true
		facts = append(facts, domain.NewLikedFact(nextID(), tick(), domain.PostLiked{
			PostID:  postID,
			Liker:   liker,
			Creator: creator[postID],
			Reward:  domain.NewAmount(1),
		}))
	}

	return facts
}
