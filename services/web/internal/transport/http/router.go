package handlers

import (
	"net/http"
	"time"

	"knowhow/services/web/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Auth       *AuthHandler
	Courses    *CourseHandler
	Users      *UserHandler
	Generation *GenerationHandler
	Live       *LiveHandler
}

type RouterConfig struct {
	AllowedOrigins []string
	Session        gin.HandlerFunc
	Limiter        *middleware.RateLimiter
	GenerateLimit  int
	GenerateWindow time.Duration
}

func NewRouter(h Handlers, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	config := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = cfg.AllowedOrigins
		config.AllowCredentials = true
	}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	config.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api/v1")
	if cfg.Session != nil {
		api.Use(cfg.Session)
	}
	{
		auth := api.Group("/auth")
		{
			auth.POST("/sign-up", h.Auth.SignUp)
			auth.POST("/sign-in", limit(cfg.Limiter, "sign_in", 5, time.Minute), h.Auth.SignIn)
			auth.POST("/sign-out", h.Auth.SignOut)
		}

		api.GET("/stats", h.Courses.Stats)
		course := api.Group("/courses")
		{
			course.GET("", h.Courses.List)
			course.GET("/:id", h.Courses.GetOne)
			course.POST("/:id/save", h.Courses.Save())
			course.DELETE("/:id/save", h.Courses.Unsave())
			course.POST("/:id/complete", h.Courses.Complete())
			course.DELETE("/:id/complete", h.Courses.Uncomplete())
		}
		class := api.Group("/classes")
		{
			class.GET("/:id", h.Courses.GetClass)
			class.POST("/:id/complete", h.Courses.CompleteClass())
			class.DELETE("/:id/complete", h.Courses.UncompleteClass())
		}

		api.GET("/library", h.Users.Library)
		api.GET("/me", h.Users.Me)
		api.POST("/generate", limit(cfg.Limiter, "generate", cfg.GenerateLimit, cfg.GenerateWindow), h.Generation.Generate)

		live := api.Group("/live")
		{
			live.GET("/courses/:id", h.Live.Course)
			live.GET("/search", h.Live.Search)
			live.POST("/search/:client", h.Live.SearchInput)
		}
	}

	return r
}

func limit(l *middleware.RateLimiter, name string, n int, window time.Duration) gin.HandlerFunc {
	if l == nil || n <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return l.Limit(name, n, window)
}
