package queue

import (
	"log/slog"

	"moviemate/app/service/conversation"

	"github.com/samber/do"
)

const bufferSize = 64

var (
	_ do.Shutdownable   = (*Service)(nil)
	_ conversation.Host = (*Service)(nil)
)

// Service carries render and close notifications from conversations to a push
// host. It never blocks the sender.
type Service struct {
	queue chan Message
}

type Message struct {
	ConversationID string
	View           *conversation.View
	Close          bool
}

func New(_ *do.Injector) (*Service, error) {
	return NewService(bufferSize), nil
}

func NewService(size int) *Service {
	return &Service{
		queue: make(chan Message, size),
	}
}

func (s *Service) Render(view conversation.View) {
	s.Add(Message{ConversationID: view.ConversationID, View: &view})
}

func (s *Service) Close(conversationID string) {
	s.Add(Message{ConversationID: conversationID, Close: true})
}

func (s *Service) Add(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("message queue is closed", "conversation_id", msg.ConversationID)
		}
	}()

	select {
	case s.queue <- msg:
	default:
		slog.Warn("message queue is full", "conversation_id", msg.ConversationID)
	}
}

func (s *Service) Channel() <-chan Message {
	return s.queue
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
