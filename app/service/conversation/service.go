package conversation

import (
	"context"
	"log/slog"
	"sync"

	"moviemate/app/client/queryapi"
	"moviemate/app/config"
	"moviemate/app/service/flow"
	"moviemate/app/service/transcript"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

// Service keeps the live conversations. Idle or overflowing conversations are
// shut down and archived.
type Service struct {
	script     flow.Script
	dispatcher Dispatcher
	archiver   Archiver
	opts       []Option

	cache *expirable.LRU[string, *Controller]

	// evicted holds conversations removed from cache and not yet archived.
	evictedMu sync.Mutex
	evicted   []*Controller
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(
		cfg.Chat,
		do.MustInvoke[*queryapi.Client](di),
		do.MustInvoke[*transcript.Service](di),
	), nil
}

func NewService(cfg config.Chat, dispatcher Dispatcher, archiver Archiver, opts ...Option) *Service {
	s := &Service{
		script:     flow.NewScript(cfg),
		dispatcher: dispatcher,
		archiver:   archiver,
		opts:       opts,
	}

	s.cache = expirable.NewLRU[string, *Controller](cfg.MaxConversations, s.onEvict, cfg.IdleTTL)

	return s
}

// onEvict runs under the cache lock, so archiving is left to archiveEvicted.
func (s *Service) onEvict(_ string, ctrl *Controller) {
	ctrl.Shutdown()

	s.evictedMu.Lock()
	s.evicted = append(s.evicted, ctrl)
	s.evictedMu.Unlock()
}

// archiveEvicted writes out the conversations evicted so far. It must not be
// called while holding the cache lock.
func (s *Service) archiveEvicted() {
	s.evictedMu.Lock()
	evicted := s.evicted
	s.evicted = nil
	s.evictedMu.Unlock()

	if s.archiver == nil {
		return
	}

	for _, ctrl := range evicted {
		if err := s.archiver.Append(ctrl.Record()); err != nil {
			slog.Error("Failed to archive conversation",
				"conversation_id", ctrl.ID(),
				"error", err,
			)
		}
	}
}

// Create starts a new conversation rendered by host and presents its start
// state. host may be nil for conversations polled over the API.
func (s *Service) Create(host Host) *Controller {
	id := uuid.NewString()

	// Without a host nothing closes the conversation after End, so it stays
	// until Close or idle expiry and the next input restarts it.
	var h Host = nopHost{}
	if host != nil {
		h = &registryHost{svc: s, inner: host}
	}

	ctrl := NewController(id, s.script, s.dispatcher, h, s.opts...)

	s.cache.Add(id, ctrl)
	s.archiveEvicted()

	slog.Info("Conversation started", "conversation_id", id)

	ctrl.Begin()

	return ctrl
}

func (s *Service) Get(id string) (*Controller, bool) {
	defer s.archiveEvicted()

	return s.cache.Peek(id)
}

// Submit forwards text to the conversation and refreshes its idle timer.
func (s *Service) Submit(ctx context.Context, id, text string) (View, bool) {
	ctrl, ok := s.cache.Get(id)
	if ok {
		s.cache.Add(id, ctrl)
	}
	s.archiveEvicted()

	if !ok {
		return View{}, false
	}

	return ctrl.Submit(ctx, text), true
}

// Close shuts the conversation down and archives it.
func (s *Service) Close(id string) bool {
	if !s.cache.Remove(id) {
		return false
	}
	s.archiveEvicted()

	slog.Info("Conversation closed", "conversation_id", id)

	return true
}

func (s *Service) Len() int {
	defer s.archiveEvicted()

	return s.cache.Len()
}

func (s *Service) Suggestions() []string {
	_, options := s.script.Prompt(flow.StateStart)
	return options
}

func (s *Service) Shutdown() error {
	s.cache.Purge()
	s.archiveEvicted()

	return nil
}

type registryHost struct {
	svc   *Service
	inner Host
}

func (h *registryHost) Render(view View) {
	h.inner.Render(view)
}

func (h *registryHost) Close(id string) {
	h.svc.Close(id)
	h.inner.Close(id)
}
