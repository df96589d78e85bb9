package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/talenthub/internal/app"
	"github.com/oggyb/talenthub/internal/http/middleware"
	"github.com/oggyb/talenthub/internal/metrics"
	"github.com/oggyb/talenthub/internal/service/block"
	"github.com/oggyb/talenthub/internal/service/conversation"
	"github.com/oggyb/talenthub/internal/service/eula"
	"github.com/oggyb/talenthub/internal/service/message"
	"github.com/oggyb/talenthub/internal/service/report"
	"github.com/oggyb/talenthub/internal/service/talent"
	"github.com/oggyb/talenthub/internal/service/visibility"
)

// NewRouter wires every route onto a gin engine and wraps it with request
// ids and CORS.
func NewRouter(appCtx *app.AppContext) http.Handler {
	middleware.RegisterValidators()

	cfg := appCtx.Config
	eulaSvc := eula.NewEulaService(appCtx)

	convH := &ConversationHandler{
		Conversations: conversation.NewConversationService(appCtx),
		Messages:      message.NewMessageService(appCtx),
	}
	modH := &ModerationHandler{
		Blocks:  block.NewBlockService(appCtx),
		Reports: report.NewReportService(appCtx),
		Eula:    eulaSvc,
	}
	discH := &DiscoveryHandler{
		Visibility: visibility.NewVisibilityService(appCtx),
		Talents:    talent.NewTalentService(appCtx),
	}

	secret := cfg.Auth.JWTSecret
	requireAuth := middleware.RequireAuth(secret)
	optionalAuth := middleware.OptionalAuth(secret)
	requireEula := middleware.RequireEula(eulaSvc, cfg.Moderation.EnforceEula)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logging(appCtx.Logger), metrics.Middleware())

	// Ops
	r.GET("/healthz", healthz(appCtx))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Conversations
	convs := r.Group("/conversations", optionalAuth)
	{
		convs.GET("", convH.List)
		convs.POST("", requireEula, convH.Create)
		convs.GET("/:id", requireAuth, convH.Get)
		convs.DELETE("/:id", requireAuth, middleware.RequireAdmin(), convH.Delete)
		convs.GET("/:id/messages", convH.ListMessages)
		convs.POST("/:id/messages", requireEula, convH.Send)
	}

	// Legacy direct messages
	msgs := r.Group("/messages", optionalAuth)
	{
		msgs.POST("", requireEula, convH.SendDirect)
		msgs.POST("/conversation", requireAuth, convH.Between)
	}

	// Moderation
	mod := r.Group("/moderation")
	{
		mod.GET("/eula", modH.CurrentEula)

		authed := mod.Group("", requireAuth)
		authed.POST("/block", modH.Block)
		authed.DELETE("/block/:userId", modH.Unblock)
		authed.GET("/blocked", modH.Blocked)
		authed.POST("/report", modH.Report)
		authed.POST("/eula/accept", modH.AcceptEula)
		authed.GET("/eula/check", modH.CheckEula)

		admin := mod.Group("/admin", requireAuth, middleware.RequireAdmin())
		admin.GET("/reports", modH.ListReports)
		admin.GET("/reports/pending", modH.PendingReports)
		admin.GET("/reports/user/:userId", modH.UserReports)
		admin.PATCH("/reports/:id/resolve", modH.Resolve)
		admin.PATCH("/reports/:id/dismiss", modH.Dismiss)
		admin.GET("/stats", modH.Stats)
		admin.POST("/eula", modH.PublishEula)
	}

	// Profiles and talents
	r.GET("/users/:userId/profile", optionalAuth, discH.Profile)
	talents := r.Group("/talents")
	{
		talents.GET("", optionalAuth, discH.Feed)
		talents.GET("/:id/likes/count", discH.LikeCount)
		talents.POST("/:id/like", requireAuth, discH.Like)
		talents.DELETE("/:id/like", requireAuth, discH.Unlike)
		talents.POST("/:id/save", requireAuth, discH.Save)
		talents.DELETE("/:id/save", requireAuth, discH.Unsave)
	}
	r.GET("/me/talents/:kind", requireAuth, discH.Reacted)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return chimiddleware.RequestID(corsHandler(r))
}

// healthz pings the database and Redis. Redis being down degrades the
// service but does not fail the check.
func healthz(appCtx *app.AppContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "ok", "redis": "ok"}
		code := http.StatusOK

		if sqlDB, err := appCtx.DB.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["database"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		if appCtx.RedisCache == nil {
			status["redis"] = "disabled"
		} else if err := appCtx.RedisCache.Ping(ctx); err != nil {
			status["redis"] = "degraded"
		}
		c.JSON(code, gin.H{"data": status})
	}
}
