package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/pithakchhorn/portfolio-api/config"
	"github.com/pithakchhorn/portfolio-api/controllers"
	"github.com/pithakchhorn/portfolio-api/middleware"
	"github.com/pithakchhorn/portfolio-api/models"
	"github.com/pithakchhorn/portfolio-api/services"
	"github.com/pithakchhorn/portfolio-api/storage"
	"github.com/pithakchhorn/portfolio-api/utils"
)

const (
	newestFirst = "created_at DESC, id DESC"
	// room for multipart headers and text fields around the image part
	formSlack = 1 << 20
	// credentials never need more than this
	loginBodyMax = 64 << 10
)

// Deps are the process-wide collaborators the router hands to controllers.
type Deps struct {
	DB      *gorm.DB
	Tokens  *utils.TokenService
	Storage storage.Backend
	Guard   *utils.LoginGuard
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Deps) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Only listed proxies may speak for the client; otherwise ClientIP is the socket peer
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		utils.Sugar.Warnf("invalid trusted proxies %v, trusting none: %v", cfg.TrustedProxies, err)
		_ = r.SetTrustedProxies(nil)
	}
	// Access log goes to its own rolling file; without one it joins the app log
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(utils.RequestID())
	r.Use(utils.AccessLog(gl))
	r.Use(utils.Recovery(gl, !cfg.IsProduction()))
	// multipart parts above this stay on disk while parsing
	r.MaxMultipartMemory = 8 << 20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
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

	if cfg.MetricsEnabled {
		middleware.RegisterMetrics(prometheus.DefaultRegisterer)
		r.Use(middleware.Metrics())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	if local, ok := deps.Storage.(*storage.Local); ok {
		r.Static("/static", local.Root)
	}

	r.GET("/", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"message": "Welcome to the Portfolio API"})
	})

	ingest := services.NewIngestor(deps.Storage, cfg.UploadMaxBytes())
	authService := services.NewAuthService(deps.DB, deps.Tokens)
	authController := controllers.NewAuthController(authService, deps.Guard)
	postController := controllers.NewPostController(
		services.NewResourceStore[models.Post](deps.DB, deps.Storage, newestFirst, "category"), ingest)
	certController := controllers.NewCertificateController(
		services.NewResourceStore[models.Certificate](deps.DB, deps.Storage, newestFirst), ingest)
	skillController := controllers.NewSkillController(
		services.NewResourceStore[models.Skill](deps.DB, nil, services.SkillOrder, "category", "is_featured"),
		services.NewSkillQueries(deps.DB))

	api := r.Group("/api")
	api.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "healthy"})
	})

	limiter := middleware.RateLimitMiddleware(cfg.RateLimitPerMinute)
	requireAuth := middleware.AuthRequired(deps.Tokens, authService)

	authGroup := api.Group("/auth")
	authGroup.Use(limiter, middleware.BodyLimit(loginBodyMax))
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/me", requireAuth, authController.Me)

	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:id", postController.GetPost)
	api.GET("/certificates", certController.ListCertificates)
	api.GET("/certificates/:id", certController.GetCertificate)
	api.GET("/skills", skillController.ListSkills)
	api.GET("/skills/categories", skillController.Categories)
	api.GET("/skills/featured", skillController.Featured)
	api.GET("/skills/stats/category-distribution", skillController.CategoryDistribution)
	api.GET("/skills/stats/proficiency-levels", skillController.ProficiencyLevels)
	api.GET("/skills/:id", skillController.GetSkill)

	protected := api.Group("")
	protected.Use(requireAuth, limiter, middleware.BodyLimit(cfg.UploadMaxBytes()+formSlack))
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.PATCH("/posts/:id", postController.PatchPost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/certificates", certController.CreateCertificate)
	protected.PUT("/certificates/:id", certController.UpdateCertificate)
	protected.PATCH("/certificates/:id", certController.PatchCertificate)
	protected.DELETE("/certificates/:id", certController.DeleteCertificate)
	protected.POST("/skills", skillController.CreateSkill)
	protected.PUT("/skills/:id", skillController.UpdateSkill)
	protected.DELETE("/skills/:id", skillController.DeleteSkill)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
