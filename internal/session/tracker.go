package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"certguard/internal/verification"
	dErrors "certguard/pkg/domain-errors"
)

// DefaultRetention is how many sessions a Tracker remembers.
const DefaultRetention = 1024

// Failure is the client-safe description of a failed session.
type Failure struct {
	Code    dErrors.Code `json:"code"`
	Message string       `json:"message"`
}

// View is everything known about one session.
type View struct {
	Session  Session               `json:"session"`
	Progress []Progress            `json:"progress"`
	Outcome  *verification.Outcome `json:"outcome,omitempty"`
	Failure  *Failure              `json:"failure,omitempty"`
}

// Tracker is a Sink that remembers recent sessions for polling.
type Tracker struct {
	mu        sync.Mutex
	retention int
	entries   map[uuid.UUID]*tracked
	order     []uuid.UUID
}

type tracked struct {
	view    View
	done    chan struct{}
	evicted bool
}

func NewTracker(retention int) *Tracker {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{
		retention: retention,
		entries:   make(map[uuid.UUID]*tracked),
	}
}

func (t *Tracker) Started(_ context.Context, s Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[s.Token] = &tracked{
		view: View{Session: s, Progress: make([]Progress, 0, len(Stages))},
		done: make(chan struct{}),
	}
	t.order = append(t.order, s.Token)
	t.evictLocked()
}

func (t *Tracker) Progress(_ context.Context, s Session, p Progress) {
	t.update(s, func(e *tracked) {
		e.view.Progress = append(e.view.Progress, p)
	})
}

func (t *Tracker) Completed(_ context.Context, s Session, out verification.Outcome) {
	t.update(s, func(e *tracked) {
		o := out
		e.view.Outcome = &o
	})
}

func (t *Tracker) Failed(_ context.Context, s Session, err error) {
	t.update(s, func(e *tracked) {
		e.view.Failure = FailureOf(err)
	})
}

// FailureOf describes err without leaking uncoded internals.
func FailureOf(err error) *Failure {
	msg := dErrors.MessageOf(err)
	if msg == "" {
		msg = "verification failed"
	}
	return &Failure{Code: dErrors.CodeOf(err), Message: msg}
}

func (t *Tracker) Superseded(_ context.Context, s Session) {
	t.update(s, func(*tracked) {})
}

// Get returns a copy of the session's view.
func (t *Tracker) Get(token uuid.UUID) (View, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[token]
	if !ok {
		return View{}, false
	}
	return copyView(e.view), true
}

// Wait blocks until the session is terminal or ctx ends.
func (t *Tracker) Wait(ctx context.Context, token uuid.UUID) (View, error) {
	t.mu.Lock()
	e, ok := t.entries[token]
	t.mu.Unlock()
	if !ok {
		return View{}, dErrors.New(dErrors.CodeNotFound, "verification session not found")
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if e.evicted {
		return View{}, dErrors.New(dErrors.CodeNotFound, "verification session is no longer tracked")
	}
	return copyView(e.view), nil
}

func (t *Tracker) update(s Session, fn func(*tracked)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[s.Token]
	if !ok || e.view.Session.State.Terminal() {
		return
	}
	e.view.Session = s
	fn(e)
	if s.State.Terminal() {
		close(e.done)
	}
}

// evictLocked drops the oldest terminal sessions beyond retention, falling
// back to the oldest overall. Waiters on an evicted in-flight session are
// released.
func (t *Tracker) evictLocked() {
	for len(t.order) > t.retention {
		victim := 0
		for i, tok := range t.order {
			if t.entries[tok].view.Session.State.Terminal() {
				victim = i
				break
			}
		}
		e := t.entries[t.order[victim]]
		if !e.view.Session.State.Terminal() {
			e.evicted = true
			close(e.done)
		}
		delete(t.entries, t.order[victim])
		t.order = append(t.order[:victim], t.order[victim+1:]...)
	}
}

func copyView(v View) View {
	out := v
	out.Progress = make([]Progress, len(v.Progress))
	copy(out.Progress, v.Progress)
	if v.Outcome != nil {
		o := *v.Outcome
		out.Outcome = &o
	}
	if v.Failure != nil {
		f := *v.Failure
		out.Failure = &f
	}
	return out
}
