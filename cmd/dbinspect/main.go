// Package main prints what the link preview cache holds. It opens the Badger
// store read-only, so it can run next to a live server.
//
// Usage:
//
//	DATA_PATH=~/.pabliki go run ./cmd/dbinspect
//	go run ./cmd/dbinspect -data-path ./data -limit 50
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/preview"
)

var (
	dataPath = flag.String("data-path", os.Getenv("DATA_PATH"), "Pabliki data directory")
	limit    = flag.Int("limit", 10, "Entries to print in full")
)

func main() {
	flag.Parse()
	if *dataPath == "" {
		log.Fatal("Set -data-path or DATA_PATH")
	}

	cachePath := filepath.Join(*dataPath, "cache", "previews")
	cache, err := preview.OpenCacheReadOnly(cachePath, logger.Discard())
	if err != nil {
		log.Fatalf("Failed to open preview cache: %v", err)
	}
	defer cache.Close()

	fmt.Println("=== Preview Cache Inspection ===")
	fmt.Printf("Path: %s\n\n", cachePath)

	now := time.Now()
	total, expired, withContent, shown := 0, 0, 0, 0
	hosts := map[string]int{}

	err = cache.Each(func(p *preview.Preview, expiresAt time.Time) bool {
		total++
		if !now.Before(expiresAt) {
			expired++
		}
		if p.Content != "" {
			withContent++
		}
		hosts[p.SiteName]++

		if shown < *limit {
			shown++
			fmt.Printf("%s\n", p.URL)
			fmt.Printf("  Title: %s\n", p.Title)
			if p.SiteName != "" {
				fmt.Printf("  Site: %s\n", p.SiteName)
			}
			fmt.Printf("  Fetched: %s\n", p.FetchedAt.Format(time.RFC3339))
			fmt.Printf("  Expires: %s\n", expiresAt.Format(time.RFC3339))
			if p.ReadingTime > 0 {
				fmt.Printf("  Reading time: %d min\n", p.ReadingTime)
			}
			fmt.Println()
		}
		return true
	})
	if err != nil {
		log.Fatalf("Error iterating cache: %v", err)
	}

	fmt.Println("=== Summary ===")
	fmt.Printf("Total entries: %d\n", total)
	fmt.Printf("Expired (awaiting GC): %d\n", expired)
	fmt.Printf("With readable content: %d\n", withContent)
	fmt.Printf("Distinct sites: %d\n", len(hosts))
}
