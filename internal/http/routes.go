package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tazhibayda/places-service/internal/ratelimit"
)

type RouterConfig struct {
	Tokens    TokenParser
	Limiter   ratelimit.Limiter
	Service   string // span service name
	StaticDir string // served under /uploads/images when images are kept on local disk
}

func NewRouter(h *Handler, rc RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID(), Trace(rc.Service), Metrics(), AccessLog(h.Log))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if h.Keys != nil {
		r.GET("/.well-known/jwks.json", h.JWKS)
	}
	if rc.StaticDir != "" {
		r.Static("/uploads/images", rc.StaticDir)
	}

	users := r.Group("/api/users")
	{
		users.GET("", h.GetUsers)
		users.POST("/signup", h.Signup)
		users.POST("/login", RateLimitLogin(rc.Limiter, h.Log), h.Login)
	}

	places := r.Group("/api/places")
	{
		places.GET("/:pid", h.GetPlaceByID)
		places.GET("/user/:uid", h.GetPlacesByUserID)

		auth := places.Group("", AuthJWT(rc.Tokens))
		auth.POST("", h.CreatePlace)
		auth.PATCH("/:pid", h.UpdatePlace)
		auth.DELETE("/:pid", h.DeletePlace)
	}

	r.NoRoute(h.NoRoute)
	return r
}
