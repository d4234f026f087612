package service

import (
	"context"

	"postboard/internal/models"
	"postboard/internal/observability"
	"postboard/internal/repository"
	"postboard/internal/storage"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// FeedService assembles posts and comments for display. Joins are left joins:
// a missing author, count or vote never fails a read.
type FeedService struct {
	store    *repository.Store
	resolver URLResolver
}

func NewFeedService(store *repository.Store, resolver URLResolver) *FeedService {
	return &FeedService{store: store, resolver: resolver}
}

// ListPosts returns a page of posts, newest first.
func (s *FeedService) ListPosts(ctx context.Context, caller string, page Page) ([]*models.PostView, error) {
	span, ctx := observability.NewSpan(ctx, "feed.list_posts")
	defer span.End()

	page = page.clamp(DefaultPostsLimit)
	span.AddAttributes(attribute.Int("skip", page.Skip), attribute.Int("limit", page.Limit))

	posts, err := s.store.Posts.List(ctx, page.Skip, page.Limit)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	return s.decorate(ctx, caller, posts)
}

// GetPostDetail returns one decorated post with the isAuthor flag set.
func (s *FeedService) GetPostDetail(ctx context.Context, caller, postID string) (*models.PostView, error) {
	span, ctx := observability.NewSpan(ctx, "feed.post_detail", attribute.String("post_id", postID))
	defer span.End()

	if postID == "" {
		return nil, models.NewValidationError("Post ID is required.")
	}
	post, err := s.store.Posts.GetByID(ctx, postID)
	if err != nil {
		span.SetError(err)
		return nil, storeError(err, "Post", postID)
	}

	views, err := s.decorate(ctx, caller, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	view := views[0]
	isAuthor := caller != "" && caller == post.OpenID
	view.IsAuthor = &isAuthor
	return view, nil
}

// GetComments returns the comment threads of a post. With a positive limit the
// window applies to top-level comments; replies always travel with their parent.
func (s *FeedService) GetComments(ctx context.Context, caller, postID string, page Page) (*models.CommentThread, error) {
	span, ctx := observability.NewSpan(ctx, "feed.comments", attribute.String("post_id", postID))
	defer span.End()

	if postID == "" {
		return nil, models.NewValidationError("Post ID is required.")
	}
	comments, err := s.store.Comments.ListByPost(ctx, postID)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	threads := buildThreads(comments)
	if page.Skip < 0 {
		page.Skip = 0
	}
	if page.Limit > 0 || page.Skip > 0 {
		threads = window(threads, page)
	}

	var listed []*models.CommentView
	for _, top := range threads {
		listed = append(listed, top)
		listed = append(listed, top.Replies...)
	}

	ids := make([]string, len(listed))
	owners := make([]string, 0, len(listed))
	for i, c := range listed {
		ids[i] = c.ID
		owners = append(owners, c.OpenID)
	}

	var (
		users map[string]*models.User
		liked map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.store.Users.GetByOpenIDs(gctx, unique(owners))
		return err
	})
	g.Go(func() error {
		var err error
		liked, err = s.store.Likes.LikedCommentIDs(gctx, caller, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	avatars := make([]string, 0, len(listed))
	userLikes := make([]string, 0)
	for _, c := range listed {
		author := models.AuthorOf(users[c.OpenID])
		c.AuthorName = author.Name
		c.AuthorAvatar = author.Avatar
		c.Liked = liked[c.ID]
		if c.Liked {
			userLikes = append(userLikes, c.ID)
		}
		avatars = append(avatars, c.AuthorAvatar)
	}

	urls := s.resolve(ctx, avatars)
	for _, c := range listed {
		c.AuthorAvatar = storage.Apply(urls, c.AuthorAvatar)
	}

	if threads == nil {
		threads = []*models.CommentView{}
	}
	return &models.CommentThread{Comments: threads, UserLikes: userLikes}, nil
}

// GetLikedPosts returns the posts the caller voted for, most recent vote first.
func (s *FeedService) GetLikedPosts(ctx context.Context, caller string, page Page) ([]*models.PostView, error) {
	span, ctx := observability.NewSpan(ctx, "feed.liked_posts")
	defer span.End()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	page = page.clamp(DefaultLikesLimit)

	votes, err := s.store.Votes.ListByVoter(ctx, caller)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	if page.Skip >= len(votes) {
		return []*models.PostView{}, nil
	}
	votes = votes[page.Skip:min(page.Skip+page.Limit, len(votes))]

	ids := make([]string, len(votes))
	for i, v := range votes {
		ids[i] = v.PostID
	}
	byID, err := s.store.Posts.GetByIDs(ctx, ids)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}

	posts := make([]*models.Post, 0, len(votes))
	likedAt := make(map[string]*models.Vote, len(votes))
	for _, v := range votes {
		p, ok := byID[v.PostID]
		if !ok {
			continue
		}
		if _, dup := likedAt[p.ID]; dup {
			continue
		}
		likedAt[p.ID] = v
		posts = append(posts, p)
	}

	views, err := s.decorate(ctx, caller, posts)
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		t := likedAt[v.ID].CreatedAt
		v.IsVoted = true
		v.LikeTime = &t
	}
	return views, nil
}

// GetProfile returns the caller's profile and a page of their own posts.
func (s *FeedService) GetProfile(ctx context.Context, caller string, page Page) (*models.ProfileFeed, error) {
	span, ctx := observability.NewSpan(ctx, "feed.profile")
	defer span.End()

	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	page = page.clamp(DefaultProfileLimit)

	user, err := s.store.Users.GetByOpenID(ctx, caller)
	if err != nil {
		span.SetError(err)
		return nil, storeError(err, "User", nil)
	}
	posts, err := s.store.Posts.ListByOwner(ctx, caller, page.Skip, page.Limit)
	if err != nil {
		span.SetError(err)
		return nil, models.NewInternalError(err)
	}
	views, err := s.decorate(ctx, caller, posts)
	if err != nil {
		return nil, err
	}

	info := models.UserInfo{
		NickName:  user.NickName,
		AvatarURL: user.AvatarURL,
		Birthday:  user.Birthday,
		Bio:       user.Bio,
	}
	info.AvatarURL = storage.Apply(s.resolve(ctx, []string{info.AvatarURL}), info.AvatarURL)

	return &models.ProfileFeed{UserInfo: info, Posts: views}, nil
}

// decorate joins authors, comment counts and the caller's votes onto posts,
// then swaps every file id for a temporary URL.
func (s *FeedService) decorate(ctx context.Context, caller string, posts []*models.Post) ([]*models.PostView, error) {
	views := make([]*models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	ids := make([]string, len(posts))
	owners := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
		owners[i] = p.OpenID
	}

	var (
		users  map[string]*models.User
		counts map[string]int
		voted  map[string]bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.store.Users.GetByOpenIDs(gctx, unique(owners))
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.store.Comments.CountByPosts(gctx, ids)
		return err
	})
	g.Go(func() error {
		var err error
		voted, err = s.store.Votes.VotedPostIDs(gctx, caller, ids)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, models.NewInternalError(err)
	}

	fileIDs := make([]string, 0, len(posts)*4)
	for _, p := range posts {
		author := models.AuthorOf(users[p.OpenID])
		v := &models.PostView{
			Post:         *p,
			AuthorName:   author.Name,
			AuthorAvatar: author.Avatar,
			CommentCount: counts[p.ID],
			IsVoted:      voted[p.ID],
		}
		views = append(views, v)
		fileIDs = append(fileIDs, p.FileIDs()...)
		fileIDs = append(fileIDs, author.Avatar)
	}

	urls := s.resolve(ctx, fileIDs)
	for _, v := range views {
		v.ImageURLs = storage.ApplyList(urls, v.ImageURLs)
		v.OriginalImageURLs = storage.ApplyList(urls, v.OriginalImageURLs)
		v.ImageURL = storage.Apply(urls, v.ImageURL)
		v.OriginalImageURL = storage.Apply(urls, v.OriginalImageURL)
		v.AuthorAvatar = storage.Apply(urls, v.AuthorAvatar)
	}
	return views, nil
}

func (s *FeedService) resolve(ctx context.Context, ids []string) map[string]string {
	if s.resolver == nil {
		return nil
	}
	return s.resolver.Resolve(ctx, ids)
}

// buildThreads nests replies under their top-level parent. Replies whose
// parent is not among comments are dropped.
func buildThreads(comments []*models.Comment) []*models.CommentView {
	var tops []*models.CommentView
	byID := make(map[string]*models.CommentView)
	for _, c := range comments {
		if c.IsReply() {
			continue
		}
		v := &models.CommentView{Comment: *c, Replies: []*models.CommentView{}}
		tops = append(tops, v)
		byID[c.ID] = v
	}
	for _, c := range comments {
		if !c.IsReply() {
			continue
		}
		parent, ok := byID[c.ParentID]
		if !ok {
			continue
		}
		parent.Replies = append(parent.Replies, &models.CommentView{Comment: *c, Replies: []*models.CommentView{}})
	}
	return tops
}

func window[T any](items []T, page Page) []T {
	if page.Skip >= len(items) {
		return nil
	}
	end := len(items)
	if page.Limit > 0 {
		end = min(page.Skip+page.Limit, len(items))
	}
	return items[page.Skip:end]
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
