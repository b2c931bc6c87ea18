package internal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// User-facing messages surfaced through View.LastError.
const (
	GeneralModeReply = "I can help with content-specific questions once you pick a piece of content. " +
		"Open a post from your content library and ask me again for tailored suggestions."
	noSessionMessage      = "No active chat session"
	sendFailedMessage     = "Failed to send message. Please try again."
	defaultWarningMessage = "Your message may not meet our content guidelines."
)

// View is the reactive state UI layers render from
type View struct {
	IsOpen               bool      `json:"isOpen"`
	Messages             []Message `json:"messages"`
	IsLoading            bool      `json:"isLoading"`
	LastError            string    `json:"lastError"`
	CurrentContentID     string    `json:"currentContentId"`
	CurrentContentTitle  string    `json:"currentContentTitle"`
	ConversationStarters []string  `json:"conversationStarters"`
	Actions              []Action  `json:"actions"`
	PendingInitialPrompt string    `json:"pendingInitialPrompt"`
}

// StoreOption configures a ConversationStore
type StoreOption func(*ConversationStore)

// WithLogger sets the structured logger
func WithLogger(l zerolog.Logger) StoreOption {
	return func(s *ConversationStore) { s.log = l }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) StoreOption {
	return func(s *ConversationStore) { s.now = now }
}

// WithStorageKey overrides the KV entry name
func WithStorageKey(key string) StoreOption {
	return func(s *ConversationStore) { s.cache = NewConversationCache(s.cache.kv, key) }
}

// openScope is the cancellation scope of one OpenChat call. Remote results
// that resolve after their scope was replaced are discarded.
type openScope struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newOpenScope() *openScope {
	ctx, cancel := context.WithCancel(context.Background())
	return &openScope{ctx: ctx, cancel: cancel}
}

// bind derives a call context cancelled by either ctx or the scope.
func (sc *openScope) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sc.ctx, cancel)
	return callCtx, func() {
		stop()
		cancel()
	}
}

// pendingWrite is a staged write-through of the whole conversation map.
type pendingWrite struct {
	seq    uint64
	data   string
	delete bool
}

// ConversationStore owns every AI chat thread of a session. It is safe for
// concurrent use; the lock is never held across remote calls or storage I/O.
type ConversationStore struct {
	service ChatService
	cache   *ConversationCache
	log     zerolog.Logger
	now     func() time.Time

	mu                   sync.Mutex
	threads              map[string]*Thread
	isOpen               bool
	activeKey            string
	activeTitle          string
	isLoading            bool
	lastError            string
	pendingInitialPrompt string
	inFlight             map[string]bool
	scope                *openScope
	hydrated             bool
	seq                  uint64
	listeners            map[int]func(View)
	nextListener         int

	writeMu sync.Mutex
	written uint64
}

// NewConversationStore creates an empty store. Call Hydrate before use to
// restore persisted threads.
func NewConversationStore(service ChatService, kv KVStore, opts ...StoreOption) *ConversationStore {
	s := &ConversationStore{
		service:   service,
		cache:     NewConversationCache(kv, StorageKey),
		log:       Logger().With().Str("component", "conversation_store").Logger(),
		now:       time.Now,
		threads:   make(map[string]*Thread),
		inFlight:  make(map[string]bool),
		scope:     newOpenScope(),
		listeners: make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate restores threads from durable storage. Corrupt, legacy-incompatible
// or unknown-version data is discarded and the store starts empty. It never
// fails; the report says what happened. Only the first call has any effect.
func (s *ConversationStore) Hydrate(ctx context.Context) LoadReport {
	s.mu.Lock()
	if s.hydrated {
		s.mu.Unlock()
		return LoadReport{}
	}
	s.hydrated = true
	s.mu.Unlock()

	threads, report, err := s.cache.Load(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to restore conversations, starting empty")
	}
	if report.Discarded {
		HydrateDiscardsTotal.Inc()
		s.log.Warn().Str("reason", report.Reason).Msg("discarded persisted conversations")
	}

	rewrite := report.Migrated || report.DroppedPending > 0
	if report.Migrated {
		s.log.Info().Int("threads", report.Threads).Msg("migrated legacy conversations")
	}

	s.update(ctx, rewrite, func() {
		for key, th := range threads {
			s.threads[key] = th
		}
	})
	return report
}

// OpenChat shows the chat for key and makes sure its thread has a usable
// remote session. The visible state flips before any network I/O. An empty key
// opens the general, content-less chat without contacting the service.
func (s *ConversationStore) OpenChat(ctx context.Context, key, title, initialPrompt string) error {
	var (
		scope    *openScope
		existing *Thread
	)
	s.update(ctx, false, func() {
		s.scope.cancel()
		s.scope = newOpenScope()
		scope = s.scope

		s.isOpen = true
		s.activeKey = key
		s.activeTitle = title
		s.pendingInitialPrompt = initialPrompt
		s.isLoading = key != ""
		existing = s.threads[key].Clone()
	})
	if key == "" {
		return nil
	}

	log := s.log.With().Str("key", key).Logger()

	if existing.HasSession() {
		callCtx, stop := scope.bind(ctx)
		data, err := s.getSession(callCtx, existing.RemoteSessionID)
		stop()
		if err == nil {
			applied := false
			s.update(ctx, true, func() {
				th := s.threads[key]
				if s.scope != scope || th == nil || th.RemoteSessionID != existing.RemoteSessionID {
					return
				}
				now := s.now()
				th.Messages = data.Session.ToMessages(key, now)
				th.ConversationStarters = data.ConversationStarters
				th.UIActions = data.UI.Actions
				th.LastUpdated = ParseRemoteTime(data.Session.UpdatedAt, now)
				s.isLoading = false
				s.lastError = ""
				applied = true
			})
			if !applied {
				return ErrSuperseded
			}
			log.Debug().Str("session_id", existing.RemoteSessionID).Msg("resumed remote session")
			return nil
		}
		if scope.ctx.Err() != nil {
			return ErrSuperseded
		}
		log.Warn().Err(err).Str("session_id", existing.RemoteSessionID).Msg("stale session, starting a new one")
	}

	resolved := title
	if resolved == "" && existing != nil {
		resolved = existing.Title
	}
	if resolved == "" {
		resolved = DefaultTitle(key)
	}

	callCtx, stop := scope.bind(ctx)
	data, err := s.startSession(callCtx, StartSessionRequest{
		Title:       resolved,
		ContentID:   key,
		Description: fmt.Sprintf("AI chat session for content: %s", resolved),
	})
	stop()
	if err != nil {
		if scope.ctx.Err() != nil {
			return ErrSuperseded
		}
		reason := err.Error()
		var remoteErr *RemoteError
		if errors.As(err, &remoteErr) {
			reason = remoteErr.Reason()
		}
		s.update(ctx, false, func() {
			if s.scope != scope {
				return
			}
			s.isLoading = false
			s.lastError = fmt.Sprintf("Failed to start chat session: %s. If this keeps happening, try clearing your chat history.", reason)
		})
		log.Error().Err(err).Msg("failed to start chat session")
		return fmt.Errorf("%w: %w", ErrSessionStart, err)
	}

	applied := false
	s.update(ctx, true, func() {
		if s.scope != scope {
			return
		}
		s.threads[key] = &Thread{
			Key:                  key,
			Title:                resolved,
			RemoteSessionID:      data.Session.ID,
			Messages:             []Message{},
			LastUpdated:          s.now(),
			ConversationStarters: data.ConversationStarters,
			UIActions:            data.UI.Actions,
		}
		s.activeTitle = resolved
		s.isLoading = false
		s.lastError = ""
		applied = true
	})
	if !applied {
		return ErrSuperseded
	}
	log.Info().Str("session_id", data.Session.ID).Msg("started chat session")
	return nil
}

// CloseChat hides the chat. Requests still in flight for the closed chat are
// cancelled and their results discarded.
func (s *ConversationStore) CloseChat() {
	s.update(context.Background(), false, func() {
		s.scope.cancel()
		s.scope = newOpenScope()
		s.isOpen = false
		s.isLoading = false
		s.pendingInitialPrompt = ""
		s.lastError = ""
	})
}

// SendMessage appends text to the active thread and the assistant's reply
// once the service answers. On return the thread holds both messages or
// neither.
func (s *ConversationStore) SendMessage(ctx context.Context, text string) error {
	var (
		key       string
		sessionID string
		scope     *openScope
		msg       Message
		outcome   error
	)
	s.update(ctx, true, func() {
		key = s.activeKey
		if key == "" {
			s.appendGeneralLocked(text)
			return
		}
		th := s.threads[key]
		if !th.HasSession() {
			s.lastError = noSessionMessage
			outcome = ErrNoSession
			return
		}
		if s.inFlight[key] {
			outcome = ErrSendInFlight
			return
		}
		s.inFlight[key] = true

		now := s.now()
		msg = Message{
			ID:              NewMessageID(now),
			Role:            RoleUser,
			Content:         text,
			Timestamp:       now,
			ConversationKey: key,
			Pending:         true,
		}
		th.Messages = append(th.Messages, msg)
		th.LastUpdated = now
		s.isLoading = true
		s.pendingInitialPrompt = ""
		sessionID = th.RemoteSessionID
		scope = s.scope
	})

	switch {
	case key == "":
		SendOutcomesTotal.WithLabelValues("general").Inc()
		return nil
	case outcome != nil:
		SendOutcomesTotal.WithLabelValues("rejected").Inc()
		return outcome
	}

	callCtx, stop := scope.bind(ctx)
	data, err := s.sendMessage(callCtx, sessionID, text)
	stop()

	var result error
	s.update(ctx, true, func() {
		delete(s.inFlight, key)
		current := s.scope == scope
		th := s.threads[key]

		confirmed := false
		if err == nil && current && th != nil && th.RemoteSessionID == sessionID {
			confirmed = hasMessage(th, msg.ID)
		}
		if !confirmed {
			if th != nil {
				th.removeMessage(msg.ID)
			}
			if current {
				s.isLoading = false
			}
			switch {
			case !current || err == nil:
				result = ErrSuperseded
			default:
				s.lastError = sendFailedMessage
				result = fmt.Errorf("%w: %w", ErrSendFailed, err)
			}
			return
		}

		th.confirmMessage(msg.ID)
		now := s.now()
		reply := Message{
			ID:              data.Message.ID,
			Role:            RoleAssistant,
			Content:         data.Message.Content,
			Timestamp:       ParseRemoteTime(data.Message.Timestamp, now),
			Metadata:        data.AssistantMetadata(),
			ConversationKey: key,
		}
		if reply.ID == "" {
			reply.ID = NewMessageID(now)
		}
		th.Messages = append(th.Messages, reply)
		th.LastUpdated = now
		s.isLoading = false
		if data.InappropriateContentDetected {
			s.lastError = data.WarningMessage
			if s.lastError == "" {
				s.lastError = defaultWarningMessage
			}
		} else {
			s.lastError = ""
		}
	})

	switch {
	case result == nil && data.InappropriateContentDetected:
		SendOutcomesTotal.WithLabelValues("warning").Inc()
	case result == nil:
		SendOutcomesTotal.WithLabelValues("ok").Inc()
	case errors.Is(result, ErrSuperseded):
		SendOutcomesTotal.WithLabelValues("superseded").Inc()
		s.log.Debug().Str("key", key).Msg("discarded superseded reply")
	default:
		SendOutcomesTotal.WithLabelValues("rolled_back").Inc()
		s.log.Warn().Err(err).Str("key", key).Msg("send failed, rolled back")
	}
	return result
}

// appendGeneralLocked answers locally in the content-less thread.
func (s *ConversationStore) appendGeneralLocked(text string) {
	th := s.threads[GeneralKey]
	if th == nil {
		th = &Thread{Key: GeneralKey, Title: DefaultTitle(GeneralKey), Messages: []Message{}}
		s.threads[GeneralKey] = th
	}
	now := s.now()
	th.Messages = append(th.Messages,
		Message{ID: NewMessageID(now), Role: RoleUser, Content: text, Timestamp: now, ConversationKey: GeneralKey},
		Message{ID: NewMessageID(now), Role: RoleAssistant, Content: GeneralModeReply, Timestamp: now, ConversationKey: GeneralKey},
	)
	th.LastUpdated = now
	s.pendingInitialPrompt = ""
}

// ClearMessages empties the active thread (the general thread when no content
// is active). The remote session is left untouched.
func (s *ConversationStore) ClearMessages(ctx context.Context) error {
	s.update(ctx, true, func() {
		s.clearThreadLocked(s.activeKey)
	})
	return nil
}

// ClearConversation empties the thread for key without opening it or talking
// to the remote service. An empty key clears the general thread. It reports
// whether a thread was found.
func (s *ConversationStore) ClearConversation(ctx context.Context, key string) bool {
	var found bool
	s.update(ctx, true, func() {
		found = s.clearThreadLocked(key)
	})
	return found
}

func (s *ConversationStore) clearThreadLocked(key string) bool {
	if key == "" {
		key = GeneralKey
	}
	th := s.threads[key]
	if th == nil {
		return false
	}
	th.Messages = []Message{}
	th.LastUpdated = s.now()
	return true
}

// ClearAllConversations forgets every thread and deletes the persisted copy.
func (s *ConversationStore) ClearAllConversations(ctx context.Context) error {
	return s.update(ctx, false, func() {
		s.scope.cancel()
		s.scope = newOpenScope()
		s.threads = make(map[string]*Thread)
		s.activeKey = ""
		s.activeTitle = ""
		s.isOpen = false
		s.isLoading = false
		s.pendingInitialPrompt = ""
		s.lastError = ""
	}, deleteEntry)
}

// GetAllConversations returns copies of every thread, most recently active first.
func (s *ConversationStore) GetAllConversations() []*Thread {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Thread, 0, len(s.threads))
	for _, th := range s.threads {
		out = append(out, th.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUpdated.Equal(out[j].LastUpdated) {
			return out[i].LastUpdated.After(out[j].LastUpdated)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Conversation returns a copy of the thread stored under key
func (s *ConversationStore) Conversation(key string) (*Thread, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	th, ok := s.threads[key]
	return th.Clone(), ok
}

// View returns the current reactive state
func (s *ConversationStore) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Subscribe registers fn to receive the state after every change. Listeners
// run synchronously on the goroutine that made the change.
func (s *ConversationStore) Subscribe(fn func(View)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *ConversationStore) viewLocked() View {
	key := s.activeKey
	threadKey := key
	if threadKey == "" {
		threadKey = GeneralKey
	}
	v := View{
		IsOpen:               s.isOpen,
		Messages:             []Message{},
		IsLoading:            s.isLoading,
		LastError:            s.lastError,
		CurrentContentID:     key,
		CurrentContentTitle:  s.activeTitle,
		PendingInitialPrompt: s.pendingInitialPrompt,
	}
	if th := s.threads[threadKey]; th != nil {
		v.Messages = cloneMessages(th.Messages)
		if v.CurrentContentTitle == "" && key != "" {
			v.CurrentContentTitle = th.Title
		}
		if th.ConversationStarters != nil {
			v.ConversationStarters = append([]string(nil), th.ConversationStarters...)
		}
		v.Actions = cloneActions(th.UIActions)
	}
	return v
}

type writeMode int

const (
	saveEntry writeMode = iota
	deleteEntry
)

// update runs fn under the lock, then writes through (when persist is set)
// and notifies subscribers outside of it. Writes are sequenced so a slow
// earlier write never overwrites a later one.
func (s *ConversationStore) update(ctx context.Context, persist bool, fn func(), mode ...writeMode) error {
	s.mu.Lock()
	fn()

	var w *pendingWrite
	if len(mode) > 0 && mode[0] == deleteEntry {
		s.seq++
		w = &pendingWrite{seq: s.seq, delete: true}
	} else if persist {
		s.seq++
		data, err := EncodeSnapshot(s.threads, s.now())
		if err != nil {
			s.log.Error().Err(err).Msg("failed to encode conversations")
		} else {
			w = &pendingWrite{seq: s.seq, data: data}
		}
	}
	ThreadsGauge.Set(float64(len(s.threads)))
	view := s.viewLocked()
	listeners := make([]func(View), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	err := s.flush(context.WithoutCancel(ctx), w)
	for _, l := range listeners {
		l(view)
	}
	return err
}

func (s *ConversationStore) flush(ctx context.Context, w *pendingWrite) error {
	if w == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if w.seq <= s.written {
		return nil
	}
	s.written = w.seq

	var err error
	if w.delete {
		err = s.cache.Clear(ctx)
	} else {
		err = s.cache.kv.Set(ctx, s.cache.Key(), w.data)
	}
	if err != nil {
		PersistFailuresTotal.Inc()
		s.log.Warn().Err(err).Msg("failed to persist conversations")
	}
	return err
}

func (s *ConversationStore) startSession(ctx context.Context, req StartSessionRequest) (*SessionData, error) {
	start := time.Now()
	data, err := s.service.StartSession(ctx, req)
	observeRemote("start_session", start, err)
	return data, err
}

func (s *ConversationStore) getSession(ctx context.Context, sessionID string) (*SessionData, error) {
	start := time.Now()
	data, err := s.service.GetSession(ctx, sessionID)
	observeRemote("get_session", start, err)
	return data, err
}

func (s *ConversationStore) sendMessage(ctx context.Context, sessionID, text string) (*SendMessageData, error) {
	start := time.Now()
	data, err := s.service.SendMessage(ctx, sessionID, text)
	observeRemote("send_message", start, err)
	return data, err
}

func observeRemote(op string, start time.Time, err error) {
	RemoteCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RemoteCallsTotal.WithLabelValues(op, outcome).Inc()
}

func hasMessage(th *Thread, id string) bool {
	for _, m := range th.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}
