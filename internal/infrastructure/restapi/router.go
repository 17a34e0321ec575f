package restapi

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"escrow_wallet/internal/infrastructure/configloader"
)

// RouterDeps are the handlers and collaborators the router mounts.
type RouterDeps struct {
	Profile   *ProfileHandler
	Allowance *AllowanceHandler
	Metrics   http.Handler
	ZapLogger *zap.Logger
}

// SetupRouter configures the gin engine with CORS, request logging, API routes, metrics and docs.
func SetupRouter(cfg *configloader.Config, deps RouterDeps) *gin.Engine {
	router := gin.New()

	// the API signs transactions with the server's key, so browsers only get in when listed
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
		corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
		router.Use(cors.New(corsConfig))
	}

	if deps.ZapLogger != nil {
		router.Use(ZapLoggerMiddleware(deps.ZapLogger))
	}
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := router.Group("/api/v1")
	if cfg.Server.APIToken != "" {
		v1.Use(APITokenMiddleware(cfg.Server.APIToken))
	}
	{
		v1.GET("/profile", deps.Profile.GetProfileHandler)

		prompts := v1.Group("/allowance/prompts")
		prompts.POST("", deps.Allowance.OpenPromptHandler)
		prompts.GET("/:id", deps.Allowance.GetPromptHandler)
		prompts.POST("/:id/confirm", deps.Allowance.ConfirmPromptHandler)
		prompts.POST("/:id/cancel", deps.Allowance.CancelPromptHandler)
	}

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	if cfg.Swagger.Enabled {
		router.StaticFile("/docs/swagger.yaml", cfg.Swagger.SpecFile)
		swaggerURL := ginSwagger.URL("/docs/swagger.yaml")
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, swaggerURL))
	}

	return router
}

// APITokenMiddleware rejects requests that don't carry "Authorization: Bearer <token>".
func APITokenMiddleware(token string) gin.HandlerFunc {
	expected := []byte("Bearer " + token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("Authorization"))
		if subtle.ConstantTimeCompare(got, expected) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, APIErrorResponse{Error: "missing or invalid API token"})
			return
		}
		c.Next()
	}
}

// ZapLoggerMiddleware logs every request through zap.
func ZapLoggerMiddleware(l *zap.Logger) gin.HandlerFunc {
	l = l.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			l.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		l.Info("request", fields...)
	}
}
