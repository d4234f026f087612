// Package main provides maintenance utilities for postboard.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"postboard/internal/config"
	"postboard/internal/middleware"
	"postboard/internal/repository"
)

const defaultFixBatch = 100

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin clear <collection>      - Delete every record of a collection (" + strings.Join(repository.Collections, ", ") + ")")
	fmt.Println("  admin fix-images [batch]      - Rewrite stored image lists as arrays")
	fmt.Println("  admin reconcile               - Recompute vote and like counters from their logs")
	fmt.Println("  admin token <openid> [hours]  - Mint a development identity token")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	command := os.Args[1]
	if command == "token" {
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		issueToken(cfg, os.Args[2], os.Args[3:])
		return
	}

	ctx := context.Background()
	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = closeStore(ctx) }()

	switch command {
	case "clear":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		n, err := store.Maintenance.Clear(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("Failed to clear %s: %v", os.Args[2], err)
		}
		fmt.Printf("Deleted %d records from %s\n", n, os.Args[2])

	case "fix-images":
		batch := defaultFixBatch
		if len(os.Args) > 2 {
			if batch, err = strconv.Atoi(os.Args[2]); err != nil || batch <= 0 {
				log.Fatalf("Invalid batch size %q", os.Args[2])
			}
		}
		n, err := store.Maintenance.NormalizeImageLists(ctx, batch)
		if err != nil {
			log.Fatalf("Failed to normalize image lists: %v", err)
		}
		fmt.Printf("Normalized image lists of %d posts\n", n)

	case "reconcile":
		report, err := store.Maintenance.ReconcileCounters(ctx)
		if err != nil {
			log.Fatalf("Failed to reconcile counters: %v", err)
		}
		fmt.Printf("Corrected %d post vote counters and %d comment like counters\n", report.Posts, report.Comments)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func issueToken(cfg *config.Config, openid string, rest []string) {
	if cfg.IsProduction() {
		log.Fatal("Refusing to mint tokens in production")
	}
	hours := 24
	if len(rest) > 0 {
		h, err := strconv.Atoi(rest[0])
		if err != nil || h <= 0 {
			log.Fatalf("Invalid hours %q", rest[0])
		}
		hours = h
	}
	token, err := middleware.NewAuthenticator(cfg.JWTSecret).IssueToken(openid, time.Duration(hours)*time.Hour)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
