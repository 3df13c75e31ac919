// Package main seeds a Pabliki database with a demo account and a realistic
// set of links, tags, collections and notes for local development.
//
// Usage:
//
//	DATA_PATH=~/.pabliki go run ./cmd/seed
//	go run ./cmd/seed -data-path ./data -email demo@pabliki.app -password demodemo
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/pabliki/pabliki-server/internal/auth"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/search"
	"github.com/pabliki/pabliki-server/internal/service"
	"github.com/pabliki/pabliki-server/internal/store/sqlite"
	"github.com/pabliki/pabliki-server/internal/validation"
)

var (
	dataPath = flag.String("data-path", os.Getenv("DATA_PATH"), "Pabliki data directory")
	email    = flag.String("email", "demo@pabliki.app", "Demo account email")
	password = flag.String("password", "demodemo", "Demo account password")
)

type seedLink struct {
	url, title, description string
	tags                    []string
	aiTags                  map[string]float64
	lot                     string
	note                    string
	favorite                bool
}

var links = []seedLink{
	{
		url: "https://raft.github.io/", title: "The Raft Consensus Algorithm",
		description: "Raft is a consensus algorithm designed to be easy to understand.",
		tags:        []string{"distributed systems"}, aiTags: map[string]float64{"consensus": 0.94},
		lot: "Papers", note: "Read the paper before the talk.", favorite: true,
	},
	{
		url: "https://go.dev/doc/effective_go", title: "Effective Go",
		description: "Tips for writing clear, idiomatic Go code.",
		tags:        []string{"golang"}, aiTags: map[string]float64{"style guide": 0.71},
		lot: "Reading",
	},
	{
		url: "https://www.sqlite.org/wal.html", title: "Write-Ahead Logging",
		description: "How SQLite implements atomic commit and rollback with a WAL.",
		tags:        []string{"databases", "sqlite"},
		lot:         "Databases", note: "Checkpoint behaviour matters for backups.",
	},
	{
		url: "https://blevesearch.com/docs/Getting%20Started/", title: "Bleve: Getting Started",
		tags: []string{"search", "golang"}, aiTags: map[string]float64{"full-text search": 0.88},
		lot: "Reading",
	},
	{
		url: "https://en.wikipedia.org/wiki/Sourdough", title: "Sourdough",
		description: "Bread made by the fermentation of dough using wild lactobacillaceae and yeast.",
		tags:        []string{"cooking"}, lot: "Kitchen", favorite: true,
	},
}

// lots lists collections parent first; roots have no parent.
var lots = []struct{ name, parent string }{
	{"Reading", ""},
	{"Papers", "Reading"},
	{"Databases", "Papers"},
	{"Kitchen", ""},
}

func main() {
	flag.Parse()
	if *dataPath == "" {
		log.Fatal("Set -data-path or DATA_PATH")
	}
	if err := os.MkdirAll(*dataPath, 0o755); err != nil {
		log.Fatalf("Failed to create data path: %v", err)
	}

	dbPath := filepath.Join(*dataPath, "pabliki.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	quiet := logger.Discard()
	st, err := sqlite.Open(dbPath, quiet)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	idx, err := search.Open(search.Options{DataPath: *dataPath, Logger: quiet})
	if err != nil {
		log.Printf("Search index unavailable, links will not be indexed: %v", err)
		idx = nil
	} else {
		defer idx.Close()
	}

	key, err := auth.LoadOrGenerateKey(*dataPath)
	if err != nil {
		log.Fatalf("Failed to load auth key: %v", err)
	}
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 24*time.Hour)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	v := validation.New()
	activity := service.NewActivityService(st, quiet)
	sessions := service.NewSessionService(st, tokens, quiet)
	authService := service.NewAuthService(st, tokens, sessions, v, nil, quiet)
	searchService := service.NewSearchService(idx, st, v, activity, nil, quiet)
	linkService := service.NewLinkService(st, v, activity, nil, nil, nil, quiet)
	tagService := service.NewTagService(st, v, activity, nil, nil, quiet)
	collectionService := service.NewCollectionService(st, v, activity, nil, nil, quiet)
	noteService := service.NewNoteService(st, v, nil, nil, quiet)
	linkService.SetIndexer(searchService)
	tagService.SetIndexer(searchService)
	collectionService.SetIndexer(searchService)

	ctx := context.Background()
	client := auth.ClientInfo{IPAddress: "127.0.0.1", UserAgent: "pabliki-seed"}

	userID, err := demoUser(ctx, authService, client)
	if err != nil {
		log.Fatalf("Failed to prepare demo user: %v", err)
	}
	fmt.Printf("Seeding data for %s (%s)\n", *email, userID)

	lotIDs := make(map[string]string, len(lots))
	for _, l := range lots {
		req := service.CreateCollectionRequest{Name: l.name}
		if l.parent != "" {
			parent := lotIDs[l.parent]
			req.ParentID = &parent
		}
		c, err := collectionService.Create(ctx, userID, req)
		if err != nil {
			log.Fatalf("Failed to create collection %q: %v", l.name, err)
		}
		lotIDs[l.name] = c.ID
	}
	fmt.Printf("  Created %d collections\n", len(lotIDs))

	noFetch := false
	created := 0
	for _, sl := range links {
		req := service.CreateLinkRequest{
			URL:          sl.url,
			Title:        sl.title,
			Description:  sl.description,
			TagNames:     sl.tags,
			IsFavorite:   sl.favorite,
			FetchPreview: &noFetch,
		}
		if id, ok := lotIDs[sl.lot]; ok {
			req.CollectionIDs = []string{id}
		}

		link, err := linkService.Create(ctx, userID, req)
		if domainerrors.Is(err, domainerrors.ErrConflict) {
			fmt.Printf("  Skipping %s (already saved)\n", sl.url)
			continue
		}
		if err != nil {
			log.Fatalf("Failed to create link %s: %v", sl.url, err)
		}
		created++

		for name, confidence := range sl.aiTags {
			if _, err := tagService.GetOrCreate(ctx, userID, name, true); err != nil {
				log.Fatalf("Failed to create AI tag %q: %v", name, err)
			}
			req := service.AttachTagRequest{Name: name, Confidence: &confidence}
			if _, _, err := tagService.AttachToLink(ctx, userID, link.ID, req); err != nil {
				log.Fatalf("Failed to attach tag %q: %v", name, err)
			}
		}
		if sl.note != "" {
			if _, err := noteService.Create(ctx, userID, link.ID, service.NoteRequest{Content: sl.note}); err != nil {
				log.Fatalf("Failed to add note: %v", err)
			}
		}
		for range rand.IntN(4) {
			if _, err := linkService.Visit(ctx, userID, link.ID); err != nil {
				log.Fatalf("Failed to record visit: %v", err)
			}
		}
	}

	fmt.Printf("  Created %d links\n", created)
	fmt.Println("Seeding complete!")
}

// demoUser signs in to the demo account, registering it on first run.
func demoUser(ctx context.Context, s *service.AuthService, client auth.ClientInfo) (string, error) {
	resp, err := s.Login(ctx, service.LoginRequest{Email: *email, Password: *password}, client)
	if err == nil {
		return resp.User.ID, nil
	}
	reg, err := s.Register(ctx, service.RegisterRequest{
		Name:            "Demo",
		Email:           *email,
		Password:        *password,
		ConfirmPassword: *password,
		Terms:           true,
	}, client)
	if err != nil {
		return "", err
	}
	return reg.User.ID, nil
}
