package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

var ErrSessionClosed = errors.New("session closed")

type command struct {
	fn    func(*Session) error
	reply chan error
}

// Runner owns a Session and drives it from a single goroutine: physics
// ticks, timer callbacks and commands never run concurrently.
type Runner struct {
	session    *Session
	cmds       chan command
	done       chan struct{}
	exited     chan struct{}
	frameEvery int
	started    atomic.Bool
	lastActive atomic.Int64
	closeOnce  sync.Once
}

// NewRunner wraps s. frameHz is how often frames are emitted; 0 disables
// them.
func NewRunner(s *Session, frameHz int) *Runner {
	r := &Runner{
		session: s,
		cmds:    make(chan command),
		done:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	if frameHz > 0 {
		hz := int(time.Second / s.Step())
		r.frameEvery = hz / frameHz
		if r.frameEvery < 1 {
			r.frameEvery = 1
		}
	}
	r.Touch()
	return r
}

func (r *Runner) ID() string {
	return r.session.ID
}

// Touch marks the session as active now.
func (r *Runner) Touch() {
	r.lastActive.Store(time.Now().UnixNano())
}

func (r *Runner) LastActive() time.Time {
	return time.Unix(0, r.lastActive.Load())
}

// Start launches the loop. It stops when ctx ends or Close is called.
func (r *Runner) Start(ctx context.Context) {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	go r.loop(ctx)
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.exited)
	defer r.session.Close()

	ticker := time.NewTicker(r.session.Step())
	defer ticker.Stop()

	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.done:
			return
		case cmd := <-r.cmds:
			cmd.reply <- r.exec(cmd.fn)
		case <-ticker.C:
			r.tick()
			ticks++
			if r.frameEvery > 0 && ticks%r.frameEvery == 0 {
				r.session.emit(EventFrame, r.session.Frame().fields())
			}
		}
	}
}

func (r *Runner) tick() {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[SESSION] Tick panicked session=%s: %v", r.session.ID, rec)
		}
	}()
	r.session.Advance(r.session.Step())
}

func (r *Runner) exec(fn func(*Session) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[SESSION] Command panicked session=%s: %v", r.session.ID, rec)
			err = fmt.Errorf("internal error: %v", rec)
		}
	}()
	return fn(r.session)
}

// Do runs fn on the session's goroutine and waits for its result. Before
// Start it runs fn inline.
func (r *Runner) Do(ctx context.Context, fn func(*Session) error) error {
	select {
	case <-r.done:
		return ErrSessionClosed
	default:
	}
	if !r.started.Load() {
		return r.exec(fn)
	}

	reply := make(chan error, 1)
	select {
	case r.cmds <- command{fn: fn, reply: reply}:
	case <-r.done:
		return ErrSessionClosed
	case <-r.exited:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		r.Touch()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop and closes the session. It waits for the loop to
// exit when it was started.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.done)
		if r.started.Load() {
			<-r.exited
		} else {
			r.session.Close()
		}
	})
}

// Done is closed once Close has been called.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}
