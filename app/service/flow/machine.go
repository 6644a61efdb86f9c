package flow

import (
	"time"

	"moviemate/app/config"
)

// Script holds the fixed texts and rules of a conversation.
type Script struct {
	Greeting       string
	ClosingMessage string
	EndToken       string
	CloseDelay     time.Duration
	Suggestions    []string
}

func NewScript(cfg config.Chat) Script {
	return Script{
		Greeting:       cfg.Greeting,
		ClosingMessage: cfg.ClosingMessage,
		EndToken:       cfg.EndToken,
		CloseDelay:     cfg.CloseDelay,
		Suggestions:    append([]string(nil), cfg.Suggestions...),
	}
}

// Initial is the machine of a conversation that has just begun.
func Initial() Machine {
	return Machine{State: StateStart}
}

// Transition computes the next machine and the effects the driver must run.
// It is defined for every state and event.
func (s Script) Transition(m Machine, ev Event) (Machine, []Effect) {
	switch ev := ev.(type) {
	case Input:
		return s.onInput(m, ev.Text)
	case Replied:
		return s.onReplied(m, ev)
	default:
		return m, nil
	}
}

func (s Script) onInput(m Machine, text string) (Machine, []Effect) {
	var effects []Effect

	switch m.State {
	case StateEnd:
		return Machine{State: StateStart, Latest: m.Latest}, []Effect{
			CancelClose{},
			ResetSession{},
			Render{},
		}
	case StateLoop:
		if m.Pending != 0 {
			effects = append(effects, CancelDispatch{})
		}
	}

	// Start, Reply and Loop all hand the input to Loop.
	if text == s.EndToken {
		return Machine{State: StateEnd, Latest: m.Latest}, append(effects,
			ScheduleClose{Delay: s.CloseDelay},
			Render{},
		)
	}

	id := m.Latest + 1
	query := text

	return Machine{State: StateLoop, Latest: id, Pending: id, Query: &query}, append(effects,
		Dispatch{RequestID: id, Query: text},
		Render{},
	)
}

func (s Script) onReplied(m Machine, ev Replied) (Machine, []Effect) {
	if m.State != StateLoop || m.Pending == 0 || ev.RequestID != m.Pending || ev.Response == nil {
		return m, nil
	}

	return Machine{State: StateReply, Latest: m.Latest}, []Effect{
		Commit{Response: ev.Response},
		Render{},
	}
}

// Prompt returns the bot message and the options presented in state.
func (s Script) Prompt(state State) (string, []string) {
	switch state {
	case StateStart:
		return s.Greeting, s.options()
	case StateReply:
		return "", s.options()
	case StateEnd:
		return s.ClosingMessage, nil
	default:
		return "", nil
	}
}

func (s Script) options() []string {
	return append([]string(nil), s.Suggestions...)
}
