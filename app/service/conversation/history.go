package conversation

import (
	"time"

	"moviemate/app/service/transcript"
)

const messageHistorySize = 50

type ChatHistory struct {
	messages []transcript.Message
}

func (h *ChatHistory) add(role transcript.Role, text string, now time.Time) {
	msg := transcript.Message{
		Role:      role,
		Text:      text,
		Timestamp: now,
	}

	if len(h.messages) >= messageHistorySize {
		h.messages = append(h.messages[1:], msg)
	} else {
		h.messages = append(h.messages, msg)
	}
}

func (h *ChatHistory) list() []transcript.Message {
	return append([]transcript.Message(nil), h.messages...)
}
