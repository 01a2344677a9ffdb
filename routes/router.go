package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pedulirasa/backend/config"
	"github.com/pedulirasa/backend/controllers"
	"github.com/pedulirasa/backend/middleware"
	"github.com/pedulirasa/backend/services"
	"github.com/pedulirasa/backend/storage"
	"github.com/pedulirasa/backend/utils"
)

// Deps are the collaborators the router hands to controllers.
type Deps struct {
	DB      *gorm.DB
	Service *services.Service
	Storage storage.Storage
	Hub     *controllers.ChatHub
	Mailer  utils.Mailer
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// access log and recovery go to their own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.PageViewRecorder(d.DB, d.Service.Location()))

	if _, ok := d.Storage.(*storage.Local); ok {
		r.Static(strings.TrimSuffix(storage.PublicPrefix, "/"), cfg.StorageLocalRoot)
	}

	statsController := controllers.NewStatsController(d.Service)
	r.GET("/health", statsController.Health)

	authController := controllers.NewAuthController(d.DB, d.Mailer)
	searchController := controllers.NewSearchController(d.Service)
	donationController := controllers.NewDonationController(d.Service)
	forumController := controllers.NewForumController(d.Service)
	affairController := controllers.NewAffairController(d.Service)
	categoryController := controllers.NewCategoryController(d.Service)
	commentController := controllers.NewCommentController(d.Service)
	likeController := controllers.NewLikeController(d.Service)
	chatController := controllers.NewChatController(d.Service, d.Hub)
	userController := controllers.NewUserController(d.Service)
	adminController := controllers.NewAdminController(d.Service)
	uploadController := controllers.NewUploadController(d.DB, d.Storage)
	contactController := controllers.NewContactController(d.Mailer)
	configController := controllers.NewConfigController()

	limit := middleware.RateLimit(cfg.RateLimitPerMinute)
	auth := middleware.AuthRequired()
	optional := middleware.AuthOptional()

	api := r.Group("/api/v1")
	api.Use(limit)

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", auth, authController.Logout)
	authGroup.GET("/me", auth, authController.Me)
	authGroup.PATCH("/profile", auth, authController.UpdateProfile)
	authGroup.POST("/email/send-code", auth, authController.SendEmailCode)
	authGroup.POST("/email/verify", auth, authController.VerifyEmail)

	api.GET("/config", configController.GetPublic)
	api.GET("/stats", statsController.GetStats)
	api.GET("/stats/:type/:slug", statsController.GetPostStats)
	api.GET("/search", searchController.Search)

	api.GET("/donations", donationController.Index)
	api.GET("/requests", donationController.Requests)
	api.GET("/donations/:slug", optional, donationController.Show)
	api.POST("/donations", auth, donationController.Create)
	api.PUT("/donations/:slug", auth, donationController.Update)
	api.DELETE("/donations/:slug", auth, donationController.Delete)

	api.GET("/forums", forumController.Index)
	api.GET("/forums/:slug", optional, forumController.Show)
	api.POST("/forums", auth, forumController.Create)
	api.PUT("/forums/:slug", auth, forumController.Update)
	api.DELETE("/forums/:slug", auth, forumController.Delete)
	api.POST("/forums/:slug/like", auth, forumController.ToggleLike)

	api.GET("/affairs", affairController.Index)
	api.GET("/affairs/:slug", affairController.Show)
	api.POST("/affairs", auth, affairController.Create)
	api.PUT("/affairs/:slug", auth, affairController.Update)
	api.DELETE("/affairs/:slug", auth, affairController.Delete)

	api.GET("/categories/:type", categoryController.Index)
	api.POST("/categories/:type", auth, categoryController.Create)

	api.GET("/comments/:type/:slug", commentController.Index)
	api.POST("/comments/:type/:slug", auth, commentController.Create)
	api.DELETE("/comments/:id", auth, commentController.Delete)

	api.POST("/likes/:type/:slug", auth, likeController.Toggle)

	api.GET("/users/:id", userController.Show)
	api.GET("/users/:id/posts", userController.Posts)
	api.GET("/users/:id/liked", likeController.Liked)

	chats := api.Group("/chats", auth)
	chats.GET("", chatController.Conversations)
	chats.GET("/unread", chatController.Unread)
	chats.GET("/:userId", chatController.Messages)
	chats.POST("/:userId", chatController.Send)

	api.POST("/upload", auth, uploadController.Upload)
	api.POST("/contact", contactController.Contact)
	api.POST("/reports", optional, contactController.Report)

	admin := api.Group("/admin", auth, middleware.AdminRequired())
	admin.GET("/donations", adminController.Donations)
	admin.DELETE("/donations/:slug", adminController.Delete)
	admin.POST("/donations/:slug/restore", adminController.Restore)

	// browsers cannot set headers on websocket upgrades; AuthRequired also reads ?token=
	r.GET("/ws", auth, d.Hub.ServeWS)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.JSON(http.StatusNotFound, gin.H{"message": "not found"})
	})

	return r
}
