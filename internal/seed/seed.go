// Package seed fills a store with demo users, posts and engagement. It is
// intended for development and tests only.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
)

// Options sizes a seeding run.
type Options struct {
	Users           int
	Posts           int
	CommentsPerPost int
	// MaxDays spreads creation times over this many days back from now.
	MaxDays int
	// RandSeed makes runs reproducible when non-zero.
	RandSeed int64
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
	Votes    int
	Likes    int
}

// Seeder writes generated records through the repository layer, so it works
// against every backend.
type Seeder struct {
	store *repository.Store
	opts  Options
	faker *gofakeit.Faker
	now   time.Time
}

// NewSeeder returns a Seeder over store.
func NewSeeder(store *repository.Store, opts Options) *Seeder {
	if opts.MaxDays <= 0 {
		opts.MaxDays = 30
	}
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{store: store, opts: opts, faker: gofakeit.New(seed), now: time.Now()}
}

// ClearAll wipes every collection.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, name := range repository.Collections {
		n, err := s.store.Maintenance.Clear(ctx, name)
		if err != nil {
			return fmt.Errorf("clear %s: %w", name, err)
		}
		middleware.Logger.Info("cleared collection", slog.String("collection", name), slog.Int64("deleted", n))
	}
	return nil
}

// Run creates users, then posts by random users, then comments, votes and likes.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	openids, err := s.seedUsers(ctx)
	if err != nil {
		return sum, err
	}
	sum.Users = len(openids)
	if len(openids) == 0 {
		return sum, nil
	}

	for i := 0; i < s.opts.Posts; i++ {
		post := s.buildPost(s.pick(openids))
		if err := s.store.Posts.Create(ctx, post); err != nil {
			return sum, fmt.Errorf("create post: %w", err)
		}
		sum.Posts++

		comments, likes, err := s.seedComments(ctx, post, openids)
		if err != nil {
			return sum, err
		}
		sum.Comments += comments
		sum.Likes += likes

		for _, voter := range s.sample(openids, s.faker.Number(0, len(openids))) {
			if _, err := s.store.Votes.Toggle(ctx, voter, post.ID); err != nil {
				return sum, fmt.Errorf("vote: %w", err)
			}
			sum.Votes++
		}
	}

	middleware.Logger.Info("seeding finished",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("votes", sum.Votes),
		slog.Int("likes", sum.Likes))
	return sum, nil
}

func (s *Seeder) seedUsers(ctx context.Context) ([]string, error) {
	openids := make([]string, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		openid := "seed_" + strings.ReplaceAll(s.faker.UUID(), "-", "")
		avatar := fmt.Sprintf("https://i.pravatar.cc/150?u=%s", openid)
		if err := s.store.Users.Upsert(ctx, openid, s.faker.Username(), avatar); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		err := s.store.Users.UpdateProfile(ctx, openid, models.ProfileUpdate{
			Birthday: s.faker.DateRange(time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2006, 1, 1, 0, 0, 0, 0, time.UTC)).Format("2006-01-02"),
			Bio:      s.faker.Sentence(8),
		})
		if err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		openids = append(openids, openid)
	}
	return openids, nil
}

func (s *Seeder) buildPost(owner string) *models.Post {
	images := make(models.ImageList, s.faker.Number(0, 4))
	for i := range images {
		images[i] = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", s.faker.UUID())
	}
	post := &models.Post{
		ID:                models.NewID(),
		OpenID:            owner,
		Content:           s.faker.Paragraph(1, 3, 12, "\n"),
		ImageURLs:         images,
		OriginalImageURLs: images,
		CreatedAt:         s.pastTime(),
	}
	if s.faker.Bool() {
		post.Title = s.faker.Sentence(4)
	}
	if len(images) > 0 {
		post.ImageURL = images[0]
		post.OriginalImageURL = images[0]
	}
	return post
}

// seedComments adds top-level comments with the odd reply, and likes some of them.
func (s *Seeder) seedComments(ctx context.Context, post *models.Post, openids []string) (comments, likes int, err error) {
	n := s.faker.Number(0, s.opts.CommentsPerPost)
	var tops []*models.Comment
	for i := 0; i < n; i++ {
		c := &models.Comment{
			ID:        models.NewID(),
			PostID:    post.ID,
			OpenID:    s.pick(openids),
			Content:   s.faker.Sentence(s.faker.Number(3, 12)),
			CreatedAt: post.CreatedAt.Add(time.Duration(i+1) * time.Minute),
		}
		if len(tops) > 0 && s.faker.Number(0, 2) == 0 {
			c.ParentID = s.pickComment(tops).ID
		}
		if err := s.store.Comments.Create(ctx, c); err != nil {
			return comments, likes, fmt.Errorf("create comment: %w", err)
		}
		comments++
		if !c.IsReply() {
			tops = append(tops, c)
		}

		for _, liker := range s.sample(openids, s.faker.Number(0, 2)) {
			if _, err := s.store.Likes.SetLiked(ctx, liker, c.ID, true); err != nil {
				return comments, likes, fmt.Errorf("like comment: %w", err)
			}
			likes++
		}
	}
	return comments, likes, nil
}

func (s *Seeder) pastTime() time.Time {
	back := time.Duration(s.faker.Number(0, s.opts.MaxDays*24*60)) * time.Minute
	return s.now.Add(-back)
}

func (s *Seeder) pick(values []string) string {
	return values[s.faker.Number(0, len(values)-1)]
}

func (s *Seeder) pickComment(values []*models.Comment) *models.Comment {
	return values[s.faker.Number(0, len(values)-1)]
}

// sample returns n distinct values.
func (s *Seeder) sample(values []string, n int) []string {
	if n > len(values) {
		n = len(values)
	}
	shuffled := append([]string(nil), values...)
	s.faker.ShuffleStrings(shuffled)
	return shuffled[:n]
}
