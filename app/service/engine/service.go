package engine

import (
	"context"
	"fmt"
	"log/slog"

	"moviemate/app/service/conversation"
	"moviemate/app/service/queue"
	"moviemate/app/ui/terminal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/do"
)

// Service runs one conversation in the terminal.
type Service struct {
	conversationSvc *conversation.Service
	queueSvc        *queue.Service
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		conversationSvc: do.MustInvoke[*conversation.Service](di),
		queueSvc:        do.MustInvoke[*queue.Service](di),
	}, nil
}

// Run blocks until the conversation is closed, the user quits or ctx is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctrl := s.conversationSvc.Create(s.queueSvc)
	id := ctrl.ID()
	defer s.conversationSvc.Close(id)

	model := terminal.New(func(text string) {
		s.conversationSvc.Submit(runCtx, id, text)
	})

	p := tea.NewProgram(model, tea.WithContext(runCtx))

	go s.pump(runCtx, p, id)

	slog.Info("Terminal chat started", "conversation_id", id)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal program: %w", err)
	}

	return nil
}

func (s *Service) pump(ctx context.Context, p *tea.Program, id string) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-s.queueSvc.Channel():
			if !ok {
				return
			}

			if msg.ConversationID != id {
				continue
			}

			if msg.Close {
				p.Send(terminal.ClosedMsg{})
				continue
			}

			if msg.View != nil {
				p.Send(terminal.ViewMsg{View: *msg.View})
			}
		}
	}
}
