package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pabliki/pabliki-server/internal/preview"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: preview-test <url> [url...]")
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	f := preview.NewFetcher(preview.Options{Timeout: 15 * time.Second, HostRPS: 1}, nil, logger) // no cache
	defer f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	failed := 0
	for _, raw := range os.Args[1:] {
		start := time.Now()
		p, err := f.Fetch(ctx, raw)
		if err != nil {
			logger.Error("fetch failed", "url", raw, "error", err)
			failed++
			continue
		}

		fmt.Printf("\n=== %s (%s) ===\n", p.URL, time.Since(start).Round(time.Millisecond))
		fmt.Printf("Title: %s\n", p.Title)
		fmt.Printf("Site: %s\n", p.SiteName)
		fmt.Printf("Description: %s\n", p.Description)
		fmt.Printf("Image: %s\n", p.Image)
		fmt.Printf("Favicon: %s\n", p.Favicon)
		fmt.Printf("Reading time: %d min\n", p.ReadingTime)
		fmt.Printf("Content: %d bytes of markdown\n", len(p.Content))
	}

	if failed > 0 {
		os.Exit(1)
	}
}
