package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atakee72/community-platform/internal/domain/enums"
	authsvc "github.com/atakee72/community-platform/internal/services/auth"
	contentsvc "github.com/atakee72/community-platform/internal/services/content"
	reportsvc "github.com/atakee72/community-platform/internal/services/reports"
	reviewsvc "github.com/atakee72/community-platform/internal/services/review"
	"github.com/atakee72/community-platform/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService    *authsvc.Service
	ContentService *contentsvc.Service
	ReportService  *reportsvc.Service
	ReviewService  *reviewsvc.Service
	Logger         *zap.Logger
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	commentsHandler := handlers.NewCommentsHandler(deps.ContentService)
	reportsHandler := handlers.NewReportsHandler(deps.ReportService)
	adminModerationHandler := handlers.NewAdminModerationHandler(deps.ReviewService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	optionalAuthMW := OptionalAuthMiddleware(deps.AuthService)
	adminRoleMW := RequireRole(string(enums.RoleAdmin))

	r.Get("/healthz", healthHandler.Get)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
	})

	postRoutes := []struct {
		pattern     string
		contentType enums.ContentType
	}{
		{"/topics", enums.ContentTypeTopic},
		{"/announcements", enums.ContentTypeAnnouncement},
		{"/recommendations", enums.ContentTypeRecommendation},
		{"/events", enums.ContentTypeEvent},
	}
	for _, route := range postRoutes {
		postsHandler := handlers.NewPostsHandler(deps.ContentService, route.contentType)
		createComment := commentsHandler.Create(route.contentType)
		r.Route(route.pattern, func(r chi.Router) {
			r.With(optionalAuthMW).Get("/", postsHandler.List)
			r.With(optionalAuthMW).Get("/{id}", postsHandler.Get)
			r.With(authMW).Post("/", postsHandler.Create)
			r.With(authMW).Put("/{id}", postsHandler.Update)
			r.With(authMW).Post("/{id}/comments", createComment)
		})
	}
	r.With(optionalAuthMW).Get("/comments/{id}", commentsHandler.Get)

	r.Route("/reports", func(r chi.Router) {
		r.Use(authMW)
		r.Post("/", reportsHandler.Submit)
		r.Get("/check", reportsHandler.Check)
	})

	r.Route("/admin/moderation", func(r chi.Router) {
		r.Use(authMW, adminRoleMW)
		r.Get("/", adminModerationHandler.List)
		r.Get("/{id}", adminModerationHandler.Get)
		r.Post("/review", adminModerationHandler.Review)
	})
}
