package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/deskbridge/backend/internal/config"
	"github.com/deskbridge/backend/internal/db"
	"github.com/deskbridge/backend/internal/http/handlers"
	"github.com/deskbridge/backend/internal/http/middleware"
	"github.com/deskbridge/backend/internal/service"
)

func Router(cfg config.Config, store *db.Store, dispatcher *service.Dispatcher, proxy handlers.Forwarder, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:      store,
		Dispatcher: dispatcher,
		Proxy:      proxy,
		Validator:  validator.New(),
		Logger:     logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api/v2")
	api.Use(middleware.Auth(middleware.AuthConfig{
		Source:               store,
		RequireZendeskActive: cfg.RequireZendeskActive,
		Logger:               logger,
	}))
	{
		api.GET("/tickets.json", h.TicketsList)
		api.POST("/tickets.json", h.TicketsCreate)
		api.GET("/tickets/:id", h.TicketShow)
		api.PUT("/tickets/:id", h.TicketUpdate)
		api.GET("/tickets/:id/comments.json", h.TicketComments)
		api.GET("/users/me.json", h.UserMe)
		api.GET("/users/:id", h.UserShow)
		api.POST("/users.json", h.UsersCreate)
		api.POST("/users/create_or_update.json", h.UserCreateOrUpdate)
		api.POST("/uploads.json", h.Uploads)
	}

	return r
}
