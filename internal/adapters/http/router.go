package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/upe-portal/interview-relay/internal/adapters/signal"
	"github.com/upe-portal/interview-relay/internal/app"
	"github.com/upe-portal/interview-relay/internal/config"
	"github.com/upe-portal/interview-relay/internal/domain"
)

const (
	sessionName    = "RelaySession"
	clientTokenKey = "client_token"
	clientTokenTTL = 3600 * 24 * 7
)

func genClientToken() string {
	idStr := uuid.NewString()
	return idStr
}

// ClientTokenMiddleware keeps a per-browser token in the cookie session. The
// token only labels connections in logs; it is not an identity.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessions.Default(c)
		token, _ := s.Get(clientTokenKey).(string)
		if token == "" {
			token = genClientToken()
			s.Set(clientTokenKey, token)
			if err := s.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, relay *app.Relay) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: clientTokenTTL, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": relay.Registry.Count()})
	})

	ctrl := signal.NewSignalWSController(relay, signalOptions(cfg))

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		ctrl.HandleSignal(ctx, c)
	})

	// GET /api/rooms — rooms that currently have members
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": relay.Rooms.List()})
	})

	// GET /api/rooms/:id/members
	api.GET("/rooms/:id/members", func(c *gin.Context) {
		id := domain.RoomID(c.Param("id"))
		room, ok := relay.Rooms.Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room has no members"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": id, "members": room.MembersSnapshot()})
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

func signalOptions(cfg *config.Config) signal.Options {
	return signal.Options{
		ReadLimit:      cfg.Signal.ReadLimit,
		SendBuffer:     cfg.Signal.SendBuffer,
		PingPeriod:     cfg.Signal.PingPeriod,
		PongWait:       cfg.Signal.PongWait,
		WriteWait:      cfg.Signal.WriteWait,
		RateLimit:      cfg.Signal.RateLimit,
		RateInterval:   cfg.Signal.RateInterval,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}
