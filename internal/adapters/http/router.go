package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Lobby/internal/adapters/signal"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/protocol"
)

const (
	sessionName = "LobbySessions"
	tokenKey    = "ct"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware gives every client a stable id kept in the
// session cookie. The id is the connection id of its websocket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(tokenKey).(string)
		if token == "" {
			token = genClientToken()
			session.Set(tokenKey, token)
			if err := session.Save(); err != nil {
				log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// AdminAuth requires "Authorization: Bearer <secret>". An empty secret
// disables the admin API.
func AdminAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if secret == "" || !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// statusOf maps an error kind to an HTTP status.
func statusOf(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindCapacity, domain.KindConflict:
		return http.StatusConflict
	case domain.KindPermission:
		return http.StatusForbidden
	case domain.KindTiming:
		return http.StatusTooManyRequests
	case domain.KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"code": domain.KindOf(err).String(), "error": err.Error()})
}

func roomID(c *gin.Context) (domain.RoomID, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, false
	}
	return domain.RoomID(id), true
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	r.GET("/healthz", func(c *gin.Context) {
		var rooms, conns int
		if err := o.Do(c.Request.Context(), func() {
			rooms, conns = o.Rooms.Count(), o.Conns.Len()
		}); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopping"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "rooms": rooms, "connections": conns})
	})

	api := r.Group("/api")

	api.GET("/rooms", func(c *gin.Context) {
		var list []domain.RoomInfo
		if err := o.Do(c.Request.Context(), func() { list = o.Rooms.List(false) }); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rooms": list})
	})

	api.GET("/rooms/:id", func(c *gin.Context) {
		id, ok := roomID(c)
		if !ok {
			return
		}
		var info domain.RoomInfo
		var found bool
		if err := o.Do(c.Request.Context(), func() { info, found = o.RoomInfo(id) }); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if !found || info.IsPrivate {
			writeError(c, domain.ErrRoomNotFound)
			return
		}
		c.JSON(http.StatusOK, info)
	})

	validate := validator.New(validator.WithRequiredStructEnabled())
	admin := api.Group("/admin", AdminAuth(cfg.Secret))

	admin.POST("/rooms", func(c *gin.Context) {
		var req protocol.CreateRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, domain.Denied(domain.ErrBadRequest, "malformed payload"))
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(c, domain.Denied(domain.ErrBadRequest, err.Error()))
			return
		}
		var info domain.RoomInfo
		var opErr error
		if err := o.Do(c.Request.Context(), func() { info, opErr = o.AdminCreateRoom(req) }); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if opErr != nil {
			writeError(c, opErr)
			return
		}
		c.JSON(http.StatusCreated, info)
	})

	admin.DELETE("/rooms/:id", func(c *gin.Context) {
		id, ok := roomID(c)
		if !ok {
			return
		}
		var opErr error
		if err := o.Do(c.Request.Context(), func() { opErr = o.AdminRemoveRoom(id) }); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if opErr != nil {
			writeError(c, opErr)
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}
