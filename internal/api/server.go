// Package api exposes a ConversationStore over a local HTTP API so an editor
// plugin or dashboard can drive the chat without linking the store directly.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iksnae/creator-chat/internal"
)

// ChatStore is the part of internal.ConversationStore the API drives
type ChatStore interface {
	OpenChat(ctx context.Context, key, title, initialPrompt string) error
	CloseChat()
	SendMessage(ctx context.Context, text string) error
	ClearMessages(ctx context.Context) error
	ClearAllConversations(ctx context.Context) error
	GetAllConversations() []*internal.Thread
	View() internal.View
}

// Server wraps the gin engine with graceful shutdown helpers
type Server struct {
	engine          *gin.Engine
	store           ChatStore
	log             zerolog.Logger
	shutdownTimeout time.Duration
}

// NewServer builds the engine and registers every route
func NewServer(store ChatStore, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(log))

	s := &Server{
		engine:          engine,
		store:           store,
		log:             log,
		shutdownTimeout: 10 * time.Second,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1/chat")
	v1.GET("/state", s.getState)
	v1.POST("/open", s.openChat)
	v1.POST("/close", s.closeChat)
	v1.POST("/messages", s.sendMessage)
	v1.DELETE("/messages", s.clearMessages)
	v1.GET("/conversations", s.listConversations)
	v1.DELETE("/conversations", s.clearConversations)
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("HTTP server error")
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("Context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
