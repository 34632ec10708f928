package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/atakee72/community-platform/internal/config"
	"github.com/atakee72/community-platform/internal/infra/httpclient"
	"github.com/atakee72/community-platform/internal/infra/openai"
	mongorepo "github.com/atakee72/community-platform/internal/repo/mongodb"
	redrepo "github.com/atakee72/community-platform/internal/repo/redis"
	authsvc "github.com/atakee72/community-platform/internal/services/auth"
	contentsvc "github.com/atakee72/community-platform/internal/services/content"
	modsvc "github.com/atakee72/community-platform/internal/services/moderation"
	ratesvc "github.com/atakee72/community-platform/internal/services/rate"
	reportsvc "github.com/atakee72/community-platform/internal/services/reports"
	reviewsvc "github.com/atakee72/community-platform/internal/services/review"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	mongo      *mongo.Client
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var mongoClient *mongo.Client
	var db *mongo.Database
	if client, database, err := mongorepo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database); err != nil {
		log.Warn("mongo init failed, continuing in degraded mode", zap.Error(err))
	} else {
		mongoClient = client
		db = database
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			log.Warn("mongo index setup failed", zap.Error(err))
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	contentRepo := mongorepo.NewContentRepo(db)
	flaggedRepo := mongorepo.NewFlaggedRepo(db)
	userRepo := mongorepo.NewUserRepo(db)
	txRunner := mongorepo.NewTxRunner(mongoClient, cfg.Mongo.UseTransactions)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(authsvc.Dependencies{
		Users:      userRepo,
		Sessions:   sessionRepo,
		JWT:        jwtManager,
		RefreshTTL: cfg.Auth.RefreshTTL,
		Logger:     log,
	})

	classifier := openai.NewClient(httpclient.New(cfg.Classifier.Timeout), openai.Config{
		BaseURL: cfg.Classifier.BaseURL,
		APIKey:  cfg.Classifier.APIKey,
		Model:   cfg.Classifier.Model,
	})
	moderationService := modsvc.NewService(classifier, log)

	contentService := contentsvc.NewService(contentsvc.Dependencies{
		Content:  contentRepo,
		Flagged:  flaggedRepo,
		Users:    userRepo,
		Screener: moderationService,
		Logger:   log,
	})

	reportLimiter := ratesvc.NewLimiter(rateRepo, cfg.Moderation.ReportMaxPerWin, cfg.Moderation.ReportWindow, log)
	reportService := reportsvc.NewService(reportsvc.Dependencies{
		Queue:   flaggedRepo,
		Content: contentRepo,
		Users:   userRepo,
		Limiter: reportLimiter,
		Logger:  log,
	})

	reviewService := reviewsvc.NewService(reviewsvc.Dependencies{
		Queue:      flaggedRepo,
		Content:    contentRepo,
		Strikes:    userRepo,
		Sessions:   sessionRepo,
		Tx:         txRunner,
		MaxStrikes: cfg.Moderation.MaxStrikes,
		Logger:     log,
	})

	RegisterRoutes(r, Dependencies{
		AuthService:    authService,
		ContentService: contentService,
		ReportService:  reportService,
		ReviewService:  reviewService,
		Logger:         log,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		mongo:      mongoClient,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(ctx); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
