// Command stats prints a read-only report over the bot's database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"jobalert_bot/internal/stats"
	"jobalert_bot/internal/storage"
)

func main() {
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/bot.db"), "path to sqlite database")
	flag.Parse()

	store, err := storage.NewSQLite(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = store.Close() }()

	snap, err := store.Stats(context.Background())
	if err != nil {
		log.Fatalf("gather stats: %v", err)
	}

	fmt.Print(stats.Render(snap))
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
