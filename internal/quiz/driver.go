package quiz

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pavelanni/shieldly/internal/model"
)

// ErrClosed is returned by a Driver that has been closed.
var ErrClosed = errors.New("quiz driver closed")

// Hooks are called on the driver goroutine after a session changes. They must
// not call back into the Driver.
type Hooks struct {
	OnAnswer   func(model.AnswerRecord)
	OnBadges   func([]model.Badge)
	OnComplete func(model.Result)
}

// DriverConfig tunes a Driver.
type DriverConfig struct {
	TickInterval   time.Duration // defaults to one second
	FeedbackWindow time.Duration // 0 continues to the next question at once
	Clock          Clock         // RealClock when nil
	Hooks          Hooks
}

// Driver hosts one Session. Host commands, timer ticks and the end of the
// feedback window are all applied on a single goroutine, so the session
// itself needs no locking. At most one question ticker is armed at a time and
// it is tied to the session epoch it was armed for.
type Driver struct {
	sess *Session
	cfg  DriverConfig

	cmds      chan command
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	touched   atomic.Int64

	// owned by the loop goroutine
	ticker      Ticker
	armedEpoch  uint64
	feedback    Ticker
	feedbackFor uint64
}

type command struct {
	fn   func(*Session) error
	errc chan error
}

type mark struct {
	runs    uint64
	answers int
	badges  int
	state   State
}

// NewDriver starts a driver for sess.
func NewDriver(sess *Session, cfg DriverConfig) *Driver {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	d := &Driver{
		sess: sess,
		cfg:  cfg,
		cmds: make(chan command),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	d.touch()
	go d.loop()
	return d
}

// Do runs fn against the session on the driver goroutine and returns its
// error. Timers are re-armed to match the session state before Do returns.
func (d *Driver) Do(ctx context.Context, fn func(*Session) error) error {
	c := command{fn: fn, errc: make(chan error, 1)}
	select {
	case d.cmds <- c:
	case <-d.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	d.touch()
	select {
	case err := <-c.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the session's visible state.
func (d *Driver) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := d.Do(ctx, func(s *Session) error {
		snap = s.Snapshot()
		return nil
	})
	return snap, err
}

// LastActive reports when the host last sent a command.
func (d *Driver) LastActive() time.Time {
	return time.Unix(0, d.touched.Load())
}

// Done is closed once the driver has stopped.
func (d *Driver) Done() <-chan struct{} { return d.done }

// Close stops the driver and its timers. It is safe to call more than once.
func (d *Driver) Close() {
	d.closeOnce.Do(func() { close(d.quit) })
	<-d.done
}

func (d *Driver) touch() {
	d.touched.Store(d.cfg.Clock.Now().UnixNano())
}

func (d *Driver) loop() {
	defer close(d.done)
	defer d.stopFeedback()
	defer d.stopTicker()

	d.settle(d.mark())
	for {
		var tickC, feedbackC <-chan time.Time
		if d.ticker != nil {
			tickC = d.ticker.C()
		}
		if d.feedback != nil {
			feedbackC = d.feedback.C()
		}

		select {
		case <-d.quit:
			return
		case c := <-d.cmds:
			m := d.mark()
			err := c.fn(d.sess)
			d.settle(m)
			c.errc <- err
		case <-tickC:
			m := d.mark()
			if _, expired := d.sess.Tick(); expired {
				slog.Debug("question timed out", "position", m.answers)
			}
			d.settle(m)
		case <-feedbackC:
			d.stopFeedback()
			m := d.mark()
			d.sess.Continue()
			d.settle(m)
		}
	}
}

func (d *Driver) mark() mark {
	return mark{
		runs:    d.sess.runs,
		answers: len(d.sess.answers),
		badges:  len(d.sess.badges.unlocked),
		state:   d.sess.state,
	}
}

// settle reports what changed since m and re-arms timers for the new state.
func (d *Driver) settle(m mark) {
	h := d.cfg.Hooks
	if m.runs != d.sess.runs {
		m = mark{runs: d.sess.runs, state: StateIdle}
	}
	if n := len(d.sess.answers); n > m.answers && h.OnAnswer != nil {
		for _, rec := range d.sess.answers[m.answers:n] {
			h.OnAnswer(rec)
		}
	}
	if n := len(d.sess.badges.unlocked); n > m.badges && h.OnBadges != nil {
		h.OnBadges(append([]model.Badge(nil), d.sess.badges.unlocked[m.badges:n]...))
	}
	if d.sess.state == StateComplete && m.state != StateComplete && h.OnComplete != nil {
		if res, err := d.sess.Result(); err == nil {
			h.OnComplete(res)
		}
	}
	d.rearm()
}

func (d *Driver) rearm() {
	if d.sess.state == StateAnswerShown {
		if d.cfg.FeedbackWindow <= 0 {
			d.sess.Continue()
		} else {
			d.stopTicker()
			if d.feedback == nil || d.feedbackFor != d.sess.epoch {
				d.stopFeedback()
				d.feedback = d.cfg.Clock.NewTimer(d.cfg.FeedbackWindow)
				d.feedbackFor = d.sess.epoch
			}
			return
		}
	}

	d.stopFeedback()
	if d.sess.state != StateAwaitingAnswer {
		d.stopTicker()
		return
	}
	if d.ticker != nil && d.armedEpoch == d.sess.epoch {
		return
	}
	d.stopTicker()
	d.ticker = d.cfg.Clock.NewTicker(d.cfg.TickInterval)
	d.armedEpoch = d.sess.epoch
}

func (d *Driver) stopTicker() {
	if d.ticker != nil {
		d.ticker.Stop()
		d.ticker = nil
	}
}

func (d *Driver) stopFeedback() {
	if d.feedback != nil {
		d.feedback.Stop()
		d.feedback = nil
	}
}
