// Command seed fills the configured store with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"postboard/internal/config"
	"postboard/internal/repository"
	"postboard/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numPosts := flag.Int("posts", 100, "Number of posts to create")
	comments := flag.Int("comments", 6, "Maximum comments per post")
	maxDays := flag.Int("days", 30, "Spread creation times over this many days")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	shouldClean := flag.Bool("clean", false, "Clear every collection before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("Refusing to seed a production store")
	}

	ctx := context.Background()
	store, closeStore, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = closeStore(ctx) }()

	s := seed.NewSeeder(store, seed.Options{
		Users:           *numUsers,
		Posts:           *numPosts,
		CommentsPerPost: *comments,
		MaxDays:         *maxDays,
		RandSeed:        *randSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	sum, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Created %d users, %d posts, %d comments, %d votes, %d likes",
		sum.Users, sum.Posts, sum.Comments, sum.Votes, sum.Likes)
}
