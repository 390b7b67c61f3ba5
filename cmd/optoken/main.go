// Package main issues operator tokens for the index's mutating endpoints.
//
// The token is signed with the key the server keeps at <DATA_PATH>/auth.key,
// so it must run against the same data directory as the server.
//
// Usage:
//
//	DATA_PATH=~/TasteIndex/data go run ./cmd/optoken -operator ops@taste
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tasteapp/taste-index/internal/auth"
)

var (
	operator = flag.String("operator", "", "Operator name recorded in the token (required)")
	duration = flag.Duration("duration", 24*time.Hour, "Token lifetime")
)

func main() {
	flag.Parse()

	if *operator == "" {
		flag.Usage()
		os.Exit(2)
	}

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/TasteIndex/data")
	}

	key, err := auth.LoadKey(dataPath)
	if err != nil {
		log.Fatalf("Failed to load key (has the server run against %s?): %v", dataPath, err)
	}

	tokens, err := auth.NewTokenService(key, *duration)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	token, expiresAt, err := tokens.Issue(*operator)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Token for %s expires %s\n", *operator, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
