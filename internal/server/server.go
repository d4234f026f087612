// Package server contains the HTTP handlers and wiring of the board API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"postboard/internal/cache"
	"postboard/internal/config"
	"postboard/internal/database"
	"postboard/internal/middleware"
	"postboard/internal/models"
	"postboard/internal/repository"
	"postboard/internal/service"
	"postboard/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// FeedReader assembles the read views.
type FeedReader interface {
	ListPosts(ctx context.Context, caller string, page service.Page) ([]*models.PostView, error)
	GetPostDetail(ctx context.Context, caller, postID string) (*models.PostView, error)
	GetComments(ctx context.Context, caller, postID string, page service.Page) (*models.CommentThread, error)
	GetLikedPosts(ctx context.Context, caller string, page service.Page) ([]*models.PostView, error)
	GetProfile(ctx context.Context, caller string, page service.Page) (*models.ProfileFeed, error)
}

// PostWriter handles post mutations.
type PostWriter interface {
	CreatePost(ctx context.Context, in service.CreatePostInput) (string, error)
	DeletePost(ctx context.Context, in service.DeletePostInput) error
	Vote(ctx context.Context, openid, postID string) (models.VoteResult, error)
}

// CommentWriter handles comment mutations.
type CommentWriter interface {
	AddComment(ctx context.Context, in service.AddCommentInput) (string, error)
	LikeComment(ctx context.Context, in service.LikeCommentInput) (models.LikeResult, error)
}

// UserWriter handles profile mutations.
type UserWriter interface {
	Upsert(ctx context.Context, in service.UpsertUserInput) error
	UpdateProfile(ctx context.Context, openid string, update models.ProfileUpdate) error
}

// FileWriter handles blob uploads.
type FileWriter interface {
	Upload(ctx context.Context, in service.UploadInput) (*service.StoredFile, error)
	Compress(ctx context.Context, openid, fileID string) (*service.StoredFile, error)
}

// Server holds all dependencies for the HTTP server
type Server struct {
	config         *config.Config
	db             *gorm.DB
	mongoDB        *mongo.Database
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	auth           *middleware.Authenticator

	// blobs serves signed links minted by the local object store.
	blobs *storage.LocalStore

	feed     FeedReader
	posts    PostWriter
	comments CommentWriter
	users    UserWriter
	files    FileWriter
}

// NewServer connects every backing service selected by cfg and builds the server.
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()

	var (
		store   *repository.Store
		db      *gorm.DB
		mongoDB *mongo.Database
		err     error
	)
	if cfg.DBDriver == "mongo" {
		mongoDB, err = database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureIndexes(ctx, mongoDB); err != nil {
			return nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
		store = repository.NewMongoStore(mongoDB)
	} else {
		db, err = database.Connect(cfg)
		if err != nil {
			return nil, err
		}
		store = repository.NewGormStore(db)
	}

	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		middleware.Logger.Warn("Redis unavailable, running without URL cache and rate limits",
			slog.String("error", err.Error()))
		redisClient = nil
	}

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init object storage: %w", err)
	}

	s := NewServerWithDeps(cfg, store, redisClient, objects)
	s.db = db
	s.mongoDB = mongoDB
	s.promMiddleware = middleware.InitMetrics("postboard-api")
	return s, nil
}

// NewServerWithDeps builds the server over already connected dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, store *repository.Store, redisClient *redis.Client, objects storage.ObjectStore) *Server {
	urls := cache.NewURLCache(redisClient, cfg.URLCacheTTL)
	resolver := storage.NewResolver(objects, urls)

	s := &Server{
		config:   cfg,
		redis:    redisClient,
		auth:     middleware.NewAuthenticator(cfg.JWTSecret),
		feed:     service.NewFeedService(store, resolver),
		posts:    service.NewPostService(store.Posts, store.Votes),
		comments: service.NewCommentService(store.Comments, store.Posts, store.Likes),
		users:    service.NewUserService(store.Users),
		files:    service.NewFileService(objects, urls, cfg.MaxUploadBytes),
	}
	if local, ok := objects.(*storage.LocalStore); ok {
		s.blobs = local
	}
	return s
}

// NewApp returns a Fiber app with the board's error handling and body limit.
func (s *Server) NewApp() *fiber.App {
	maxBytes := s.config.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = service.DefaultMaxUploadBytes
	}
	return fiber.New(fiber.Config{
		AppName: "Postboard API",
		// Uploads arrive base64 encoded inside a JSON body.
		BodyLimit: maxBytes/3*4 + 64*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return models.RespondWithError(c, fe.Code, &models.AppError{
					Code:    codeForStatus(fe.Code),
					Message: fe.Message,
				})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
}

// SetupMiddleware configures the middleware chain.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// Signed file links are embedded by clients on other origins.
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS must run before anything that can short-circuit so error responses keep their headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Message: "Too many requests, please try again later.",
				Code:    models.CodeRateLimited,
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if s.blobs != nil {
		app.Get("/files/:token", s.ServeFile)
	}

	api := app.Group("/api")

	// Reads decorate for the caller when one is signed in.
	public := api.Group("", s.auth.Optional())
	public.Get("/posts", s.ListPosts)
	public.Get("/posts/:id", s.GetPost)
	public.Get("/posts/:id/comments", s.GetComments)

	protected := api.Group("", s.auth.Required())

	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	posts.Delete("/:id", s.DeletePost)
	posts.Post("/:id/vote", middleware.RateLimit(s.redis, 60, time.Minute, "vote"), s.VotePost)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 20, time.Minute, "comment"), s.AddComment)

	protected.Post("/comments/:id/like", middleware.RateLimit(s.redis, 60, time.Minute, "like_comment"), s.LikeComment)

	users := protected.Group("/users")
	users.Post("/", s.UpsertUser)
	users.Put("/me", s.UpsertUser)
	users.Get("/me/profile", s.GetProfile)
	users.Patch("/me/profile", s.UpdateProfile)
	users.Get("/me/liked-posts", s.GetLikedPosts)

	files := protected.Group("/files", middleware.RateLimit(s.redis, 30, time.Minute, "upload"))
	files.Post("/", s.UploadFile)
	files.Post("/compress", s.CompressFile)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so
// only the record store decides readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := s.pingDatabase(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

func (s *Server) pingDatabase(ctx context.Context) error {
	switch {
	case s.mongoDB != nil:
		return s.mongoDB.Client().Ping(ctx, nil)
	case s.db != nil:
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	default:
		return nil
	}
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.mongoDB != nil {
		if err := s.mongoDB.Client().Disconnect(ctx); err != nil {
			middleware.Logger.Error("error disconnecting MongoDB", slog.String("error", err.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
