package internal

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FakeChatService is an in-memory ChatService for tests. Sessions get uuid ids
// unless QueueSessionIDs supplies them; replies echo the user text by default.
type FakeChatService struct {
	mu         sync.Mutex
	sessions   map[string][]RawMessage
	nextIDs    []string
	startErr   error
	getErr     error
	sendErr    error
	warning    string
	reply      func(text string) string
	starters   []string
	actions    []Action
	gate       chan struct{}
	sendStart  chan string
	startCalls []StartSessionRequest
	getCalls   []string
	sendCalls  []string
}

// NewFakeChatService creates an empty fake service
func NewFakeChatService() *FakeChatService {
	return &FakeChatService{
		sessions: make(map[string][]RawMessage),
		reply:    func(text string) string { return "Echo: " + text },
	}
}

// QueueSessionIDs makes the next StartSession calls return ids in order
func (f *FakeChatService) QueueSessionIDs(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextIDs = append(f.nextIDs, ids...)
}

// FailStart makes StartSession return err (nil restores success)
func (f *FakeChatService) FailStart(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startErr = err
}

// FailGet makes GetSession return err (nil restores success)
func (f *FakeChatService) FailGet(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = err
}

// FailSend makes SendMessage return err (nil restores success)
func (f *FakeChatService) FailSend(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

// SetReply sets the assistant reply for each user message
func (f *FakeChatService) SetReply(fn func(text string) string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = fn
}

// SetWarning flags every reply as inappropriate with the given warning
func (f *FakeChatService) SetWarning(warning string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warning = warning
}

// SetStarters sets the conversation starters and actions of new sessions
func (f *FakeChatService) SetStarters(starters []string, actions []Action) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starters = starters
	f.actions = actions
}

// ExpireSession forgets a session so GetSession reports it as not found
func (f *FakeChatService) ExpireSession(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
}

// SeedSession registers a session that already holds messages
func (f *FakeChatService) SeedSession(id string, messages ...RawMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = append([]RawMessage(nil), messages...)
}

// BlockSends holds SendMessage calls until release is called or their context
// ends. started receives the session id of each blocked call.
func (f *FakeChatService) BlockSends() (started <-chan string, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	f.sendStart = make(chan string, 16)
	var once sync.Once
	return f.sendStart, func() { once.Do(func() { close(gate) }) }
}

// StartCalls returns the recorded StartSession requests
func (f *FakeChatService) StartCalls() []StartSessionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]StartSessionRequest(nil), f.startCalls...)
}

// GetCalls returns the session ids passed to GetSession
func (f *FakeChatService) GetCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.getCalls...)
}

// SendCalls returns the texts passed to SendMessage
func (f *FakeChatService) SendCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sendCalls...)
}

func (f *FakeChatService) StartSession(ctx context.Context, req StartSessionRequest) (*SessionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls = append(f.startCalls, req)
	if f.startErr != nil {
		return nil, f.startErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if len(f.nextIDs) > 0 {
		id = f.nextIDs[0]
		f.nextIDs = f.nextIDs[1:]
	}
	f.sessions[id] = nil
	return &SessionData{
		Session:              RawSession{ID: id, Title: req.Title},
		ConversationStarters: append([]string(nil), f.starters...),
		UI:                   RawUI{Actions: cloneActions(f.actions)},
	}, nil
}

func (f *FakeChatService) GetSession(ctx context.Context, sessionID string) (*SessionData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls = append(f.getCalls, sessionID)
	if f.getErr != nil {
		return nil, f.getErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messages, ok := f.sessions[sessionID]
	if !ok {
		return nil, &RemoteError{Op: "get_session", StatusCode: "40400", HTTPStatus: 404, Message: "session not found"}
	}
	session := RawSession{ID: sessionID, Messages: append([]RawMessage(nil), messages...)}
	if n := len(messages); n > 0 {
		session.UpdatedAt = messages[n-1].Timestamp
	}
	return &SessionData{
		Session:              session,
		ConversationStarters: append([]string(nil), f.starters...),
		UI:                   RawUI{Actions: cloneActions(f.actions)},
	}, nil
}

func (f *FakeChatService) SendMessage(ctx context.Context, sessionID, text string) (*SendMessageData, error) {
	f.mu.Lock()
	f.sendCalls = append(f.sendCalls, text)
	gate, started := f.gate, f.sendStart
	f.mu.Unlock()

	if gate != nil {
		started <- sessionID
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if _, ok := f.sessions[sessionID]; !ok {
		return nil, &RemoteError{Op: "send_message", StatusCode: "40400", HTTPStatus: 404, Message: "session not found"}
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	reply := RawMessage{ID: uuid.NewString(), Role: string(RoleAssistant), Content: f.reply(text), Timestamp: now}
	f.sessions[sessionID] = append(f.sessions[sessionID],
		RawMessage{ID: uuid.NewString(), Role: string(RoleUser), Content: text, Timestamp: now},
		reply,
	)
	return &SendMessageData{
		Message:                      reply,
		InappropriateContentDetected: f.warning != "",
		WarningMessage:               f.warning,
	}, nil
}

// CreateTestThread creates a thread with a remote session and n alternating messages
func CreateTestThread(key, sessionID string, n int) *Thread {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	th := &Thread{
		Key:             key,
		Title:           DefaultTitle(key),
		RemoteSessionID: sessionID,
		Messages:        []Message{},
	}
	for i := 0; i < n; i++ {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		ts := base.Add(time.Duration(i) * time.Second)
		th.Messages = append(th.Messages, Message{
			ID:              NewMessageID(ts),
			Role:            role,
			Content:         "message " + string(rune('a'+i%26)),
			Timestamp:       ts,
			ConversationKey: key,
		})
		th.LastUpdated = ts
	}
	return th
}

// Ensure interface compliance.
var _ ChatService = (*FakeChatService)(nil)
