package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"moviemate/app/service/flow"
	"moviemate/app/service/interpret"
	"moviemate/app/service/session"
	"moviemate/app/service/transcript"
)

// Controller drives one conversation: it feeds events to the flow script and
// runs the effects it returns. Transitions are serialized; only the dispatch
// call runs outside the lock.
type Controller struct {
	id         string
	script     flow.Script
	dispatcher Dispatcher
	host       Host
	scheduler  Scheduler
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	machine        flow.Machine
	session        *session.Session
	history        ChatHistory
	startedAt      time.Time
	cancelDispatch context.CancelFunc
	closeTimer     Timer
	closeGen       uint64
	closed         bool
}

type dispatchJob struct {
	ctx   context.Context
	id    uint64
	query string
}

type Option func(c *Controller)

func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func NewController(id string, script flow.Script, dispatcher Dispatcher, host Host, opts ...Option) *Controller {
	if host == nil {
		host = nopHost{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		id:         id,
		script:     script,
		dispatcher: dispatcher,
		host:       host,
		scheduler:  realScheduler{},
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
		machine:    flow.Initial(),
		session:    session.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.startedAt = c.now()

	return c
}

func (c *Controller) ID() string {
	return c.id
}

// Begin presents the start state.
func (c *Controller) Begin() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.session.Enter(c.machine.State, c.machine.Query)
	c.render()
}

// Submit handles one user input and, when it triggers a dispatch, waits for
// the reply before returning the resulting view.
func (c *Controller) Submit(ctx context.Context, text string) View {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return c.View()
	}

	c.history.add(transcript.RoleUser, text, c.now())

	next, effects := c.script.Transition(c.machine, flow.Input{Text: text})
	job := c.apply(ctx, next, effects)

	c.mu.Unlock()

	if job != nil {
		c.dispatch(job)
	}

	return c.View()
}

func (c *Controller) dispatch(job *dispatchJob) {
	raw, err := c.dispatcher.Dispatch(job.ctx, job.query)
	resp := interpret.FromDispatch(raw, err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	if job.id != c.machine.Pending {
		slog.Debug("Discarding stale reply",
			"conversation_id", c.id,
			"request_id", job.id,
			"pending_id", c.machine.Pending,
		)
		return
	}

	if failure, ok := resp.(interpret.Failure); ok {
		slog.Warn("Query dispatch failed",
			"conversation_id", c.id,
			"request_id", job.id,
			"error", failure.Err,
		)
	}

	next, effects := c.script.Transition(c.machine, flow.Replied{RequestID: job.id, Response: resp})
	c.apply(job.ctx, next, effects)
}

// apply installs next and runs effects. It returns the dispatch to perform
// once the lock is released.
func (c *Controller) apply(ctx context.Context, next flow.Machine, effects []flow.Effect) *dispatchJob {
	c.machine = next
	c.session.Enter(next.State, next.Query)

	var job *dispatchJob

	for _, effect := range effects {
		switch e := effect.(type) {
		case flow.Dispatch:
			dispatchCtx, cancel := context.WithCancel(ctx)
			stop := context.AfterFunc(c.ctx, cancel)
			c.cancelDispatch = func() {
				stop()
				cancel()
			}
			job = &dispatchJob{ctx: dispatchCtx, id: e.RequestID, query: e.Query}
		case flow.CancelDispatch:
			c.stopDispatch()
		case flow.Commit:
			c.stopDispatch()
			c.session.Commit(e.Response)
		case flow.ResetSession:
			c.session.Reset()
			c.startedAt = c.now()
		case flow.ScheduleClose:
			c.scheduleClose(e.Delay)
		case flow.CancelClose:
			c.stopClose()
		case flow.Render:
			c.render()
		}
	}

	return job
}

func (c *Controller) stopDispatch() {
	if c.cancelDispatch != nil {
		c.cancelDispatch()
		c.cancelDispatch = nil
	}
}

func (c *Controller) scheduleClose(delay time.Duration) {
	c.stopClose()

	gen := c.closeGen
	c.closeTimer = c.scheduler.AfterFunc(delay, func() {
		c.fireClose(gen)
	})
}

func (c *Controller) stopClose() {
	c.closeGen++
	if c.closeTimer != nil {
		c.closeTimer.Stop()
		c.closeTimer = nil
	}
}

func (c *Controller) fireClose(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.closeGen {
		c.mu.Unlock()
		return
	}
	c.closeTimer = nil
	c.mu.Unlock()

	c.host.Close(c.id)
}

func (c *Controller) render() {
	view := c.view()

	switch view.State {
	case flow.StateStart, flow.StateEnd:
		c.history.add(transcript.RoleBot, view.Message, c.now())
	case flow.StateReply:
		c.history.add(transcript.RoleBot, view.Answer, c.now())
	}

	c.host.Render(view)
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.view()
}

func (c *Controller) view() View {
	snap := c.session.Snapshot()
	message, options := c.script.Prompt(snap.State)

	view := View{
		ConversationID: c.id,
		State:          snap.State,
		Message:        message,
		Options:        options,
		Closed:         c.closed,
		Version:        snap.Version,
	}
	if options == nil {
		view.Options = []string{}
	}

	switch snap.State {
	case flow.StateReply:
		view.Answer = snap.Answer
		view.Chart = snap.Chart
		view.ReviewImage = snap.ReviewImage
	case flow.StateLoop:
		view.Loading = true
		if snap.PendingQuery != nil {
			view.PendingQuery = *snap.PendingQuery
		}
	}

	return view
}

// Record returns the transcript of the conversation so far.
func (c *Controller) Record() transcript.Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	return transcript.Record{
		ConversationID: c.id,
		StartedAt:      c.startedAt,
		ClosedAt:       c.now(),
		Messages:       c.history.list(),
	}
}

// Shutdown cancels the pending dispatch and the scheduled close. Later calls
// to the controller have no effect.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.stopDispatch()
	c.stopClose()
	c.cancel()
}
