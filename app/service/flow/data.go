package flow

import (
	"time"

	"moviemate/app/service/interpret"
)

type State string

const (
	StateStart State = "start"
	StateLoop  State = "loop"
	StateReply State = "reply"
	StateEnd   State = "end"
)

// Machine is the complete flow state of one conversation.
type Machine struct {
	State State
	// Latest is the most recently issued request id.
	Latest uint64
	// Pending is the request awaited in StateLoop, zero otherwise.
	Pending uint64
	// Query is the input being answered while in StateLoop.
	Query *string
}

type Event interface {
	isEvent()
}

// Input is text typed by the user or a clicked suggestion.
type Input struct {
	Text string
}

// Replied reports the interpreted outcome of a dispatch.
type Replied struct {
	RequestID uint64
	Response  interpret.Response
}

func (Input) isEvent()   {}
func (Replied) isEvent() {}

type Effect interface {
	isEffect()
}

type Dispatch struct {
	RequestID uint64
	Query     string
}

type CancelDispatch struct{}

type Commit struct {
	Response interpret.Response
}

type ResetSession struct{}

type ScheduleClose struct {
	Delay time.Duration
}

type CancelClose struct{}

// Render asks the host to present the state just entered.
type Render struct{}

func (Dispatch) isEffect()       {}
func (CancelDispatch) isEffect() {}
func (Commit) isEffect()         {}
func (ResetSession) isEffect()   {}
func (ScheduleClose) isEffect()  {}
func (CancelClose) isEffect()    {}
func (Render) isEffect()         {}
