package conversation

import (
	"context"
	"encoding/json"
	"time"

	"moviemate/app/client/queryapi"
	"moviemate/app/service/flow"
	"moviemate/app/service/interpret"
	"moviemate/app/service/transcript"
)

// Dispatcher sends a query to the backend. Errors are *queryapi.Failure.
type Dispatcher interface {
	Dispatch(ctx context.Context, query string) (*queryapi.RawResponse, error)
}

// Host renders conversations. Render is called with the controller lock held
// and must not call back into the controller.
type Host interface {
	Render(view View)
	Close(conversationID string)
}

type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type Archiver interface {
	Append(rec transcript.Record) error
}

// View is everything a host needs to paint the current turn.
type View struct {
	ConversationID string           `json:"conversation_id"`
	State          flow.State       `json:"state"`
	Message        string           `json:"message,omitempty"`
	Answer         string           `json:"answer,omitempty"`
	Chart          *interpret.Chart `json:"chart,omitempty"`
	ReviewImage    json.RawMessage  `json:"review_image,omitempty"`
	Options        []string         `json:"options"`
	PendingQuery   string           `json:"pending_query,omitempty"`
	Loading        bool             `json:"loading"`
	Closed         bool             `json:"closed"`
	Version        uint64           `json:"version"`
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type nopHost struct{}

func (nopHost) Render(View)  {}
func (nopHost) Close(string) {}
