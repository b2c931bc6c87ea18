package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ChatService is the remote AI chat API
type ChatService interface {
	StartSession(ctx context.Context, req StartSessionRequest) (*SessionData, error)
	GetSession(ctx context.Context, sessionID string) (*SessionData, error)
	SendMessage(ctx context.Context, sessionID, text string) (*SendMessageData, error)
}

// HTTPChatService calls the AI chat endpoints over HTTP
type HTTPChatService struct {
	httpClient *resty.Client
	baseURL    string
}

// NewHTTPChatService creates a resty-backed client. token is sent as a bearer
// token when non-empty.
func NewHTTPChatService(baseURL, token string, timeout time.Duration) *HTTPChatService {
	baseURL = strings.TrimRight(baseURL, "/")
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &HTTPChatService{
		httpClient: client,
		baseURL:    baseURL,
	}
}

// BaseURL returns the configured API root
func (c *HTTPChatService) BaseURL() string {
	return c.baseURL
}

// Ping issues a GET against the API root and returns the HTTP status. Any
// response means the service is reachable; only transport failures are errors.
func (c *HTTPChatService) Ping(ctx context.Context) (int, error) {
	resp, err := c.httpClient.R().SetContext(ctx).Get("/")
	if err != nil {
		return 0, &RemoteError{Op: "ping", Err: err}
	}
	return resp.StatusCode(), nil
}

// StartSession calls POST /ai-chat/sessions
func (c *HTTPChatService) StartSession(ctx context.Context, req StartSessionRequest) (*SessionData, error) {
	var env Envelope[SessionData]
	if err := c.do(ctx, "start_session", "POST", "/ai-chat/sessions", req, &env); err != nil {
		return nil, err
	}
	if env.Data.Session.ID == "" {
		return nil, &RemoteError{Op: "start_session", StatusCode: env.StatusCode, Message: "response did not include a session id"}
	}
	return env.Data, nil
}

// GetSession calls GET /ai-chat/sessions/{id}
func (c *HTTPChatService) GetSession(ctx context.Context, sessionID string) (*SessionData, error) {
	var env Envelope[SessionData]
	path := "/ai-chat/sessions/" + url.PathEscape(sessionID)
	if err := c.do(ctx, "get_session", "GET", path, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// SendMessage calls POST /ai-chat/sessions/{id}/messages
func (c *HTTPChatService) SendMessage(ctx context.Context, sessionID, text string) (*SendMessageData, error) {
	var env Envelope[SendMessageData]
	path := "/ai-chat/sessions/" + url.PathEscape(sessionID) + "/messages"
	if err := c.do(ctx, "send_message", "POST", path, SendMessageRequest{Message: text}, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// envelope is satisfied by every Envelope instantiation
type envelope interface {
	OK() bool
	status() (code, message string, hasData bool)
}

func (e *Envelope[T]) status() (string, string, bool) {
	return e.StatusCode, e.Message, e.Data != nil
}

func (c *HTTPChatService) do(ctx context.Context, op, method, path string, body interface{}, out envelope) error {
	request := c.httpClient.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())
	if body != nil {
		request.SetBody(body)
	}

	resp, err := request.Execute(method, path)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}

	raw := resp.Body()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			if resp.IsError() {
				return &RemoteError{Op: op, HTTPStatus: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
			}
			return &RemoteError{Op: op, HTTPStatus: resp.StatusCode(), Err: &ParseError{Source: "remote", Key: path, Err: err}}
		}
	}

	code, message, hasData := out.status()
	if resp.IsError() {
		if message == "" {
			message = strings.TrimSpace(resp.String())
		}
		return &RemoteError{Op: op, StatusCode: code, HTTPStatus: resp.StatusCode(), Message: message}
	}
	if !out.OK() {
		if message == "" {
			message = fmt.Sprintf("unexpected status code %q", code)
		}
		return &RemoteError{Op: op, StatusCode: code, HTTPStatus: resp.StatusCode(), Message: message}
	}
	if !hasData {
		return &RemoteError{Op: op, StatusCode: code, HTTPStatus: resp.StatusCode(), Message: "response did not include data"}
	}
	return nil
}

// Ensure interface compliance.
var _ ChatService = (*HTTPChatService)(nil)
