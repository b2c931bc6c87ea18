package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/iksnae/creator-chat/internal"
)

type openRequest struct {
	ContentID     string `json:"contentId"`
	Title         string `json:"title"`
	InitialPrompt string `json:"initialPrompt"`
}

type sendRequest struct {
	Text string `json:"text"`
}

// stateResponse carries the view after every mutating call, plus the error
// when the operation failed.
type stateResponse struct {
	State internal.View `json:"state"`
	Error string        `json:"error,omitempty"`
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, stateResponse{State: s.store.View()})
}

func (s *Server) openChat(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, stateResponse{State: s.store.View(), Error: "invalid request body"})
		return
	}
	err := s.store.OpenChat(c.Request.Context(), strings.TrimSpace(req.ContentID), req.Title, req.InitialPrompt)
	s.respond(c, err)
}

func (s *Server) closeChat(c *gin.Context) {
	s.store.CloseChat()
	s.respond(c, nil)
}

func (s *Server) sendMessage(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, stateResponse{State: s.store.View(), Error: "text must not be empty"})
		return
	}
	err := s.store.SendMessage(c.Request.Context(), req.Text)
	s.respond(c, err)
}

func (s *Server) clearMessages(c *gin.Context) {
	s.respond(c, s.store.ClearMessages(c.Request.Context()))
}

func (s *Server) listConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"conversations": s.store.GetAllConversations()})
}

func (s *Server) clearConversations(c *gin.Context) {
	s.respond(c, s.store.ClearAllConversations(c.Request.Context()))
}

func (s *Server) respond(c *gin.Context, err error) {
	resp := stateResponse{State: s.store.View()}
	if err == nil {
		c.JSON(http.StatusOK, resp)
		return
	}
	resp.Error = err.Error()
	c.JSON(statusFor(err), resp)
}

// statusFor maps store errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, internal.ErrSendInFlight), errors.Is(err, internal.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, internal.ErrSuperseded):
		return http.StatusGone
	case errors.Is(err, internal.ErrSessionStart), errors.Is(err, internal.ErrSendFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
