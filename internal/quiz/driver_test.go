package quiz

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pavelanni/shieldly/internal/model"
)

// manualClock hands out tickers that only fire when the test says so.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*manualTicker
}

type manualTicker struct {
	c       chan time.Time
	timer   bool
	stopped atomic.Bool
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               { t.stopped.Store(true) }

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) NewTicker(time.Duration) Ticker { return c.add(false) }
func (c *manualClock) NewTimer(time.Duration) Ticker  { return c.add(true) }

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *manualClock) add(timer bool) *manualTicker {
	t := &manualTicker{c: make(chan time.Time), timer: timer}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

func (c *manualClock) active(timer bool) []*manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*manualTicker
	for _, t := range c.tickers {
		if t.timer == timer && !t.stopped.Load() {
			out = append(out, t)
		}
	}
	return out
}

func (c *manualClock) fire(t *testing.T, timer bool) {
	t.Helper()
	act := c.active(timer)
	if len(act) != 1 {
		t.Fatalf("want exactly one armed (timer=%v), got %d", timer, len(act))
	}
	select {
	case act[0].c <- c.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not receive the tick")
	}
}

type recorder struct {
	answers   []model.AnswerRecord
	badges    []model.Badge
	completed []model.Result
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnAnswer:   func(a model.AnswerRecord) { r.answers = append(r.answers, a) },
		OnBadges:   func(b []model.Badge) { r.badges = append(r.badges, b...) },
		OnComplete: func(res model.Result) { r.completed = append(r.completed, res) },
	}
}

func startDriver(t *testing.T, budget int, window time.Duration, category string) (*Driver, *manualClock, *recorder) {
	t.Helper()
	clock := newManualClock()
	rec := &recorder{}
	sess := NewSession(Config{TimeBudget: budget, Rand: rand.New(rand.NewPCG(3, 4))})
	d := NewDriver(sess, DriverConfig{
		TickInterval:   time.Second,
		FeedbackWindow: window,
		Clock:          clock,
		Hooks:          rec.hooks(),
	})
	t.Cleanup(d.Close)
	if err := d.Do(context.Background(), func(s *Session) error {
		return s.Start(testPool(), category)
	}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return d, clock, rec
}

func snapshot(t *testing.T, d *Driver) Snapshot {
	t.Helper()
	snap, err := d.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}

func advance(t *testing.T, d *Driver) {
	t.Helper()
	if err := d.Do(context.Background(), func(s *Session) error {
		_, err := s.Advance()
		return err
	}); err != nil {
		t.Fatalf("Advance: %v", err)
	}
}

func TestDriverTimerExpiry(t *testing.T) {
	d, clock, rec := startDriver(t, 3, 0, "Body Safety")

	for i := 0; i < 3; i++ {
		clock.fire(t, false)
	}
	snap := snapshot(t, d)
	if snap.Position != 1 || snap.State != StateAwaitingAnswer {
		t.Fatalf("after expiry: position=%d state=%s", snap.Position, snap.State)
	}
	if snap.TimeLeft != 3 {
		t.Errorf("next question time left = %d, want 3", snap.TimeLeft)
	}
	if len(rec.answers) != 1 || !rec.answers[0].TimedOut || rec.answers[0].Correct {
		t.Errorf("answers = %+v, want one timed-out incorrect record", rec.answers)
	}
}

func TestDriverSingleTickerPerQuestion(t *testing.T) {
	d, clock, _ := startDriver(t, 15, 0, "")

	first := clock.active(false)
	if len(first) != 1 {
		t.Fatalf("armed tickers after start = %d, want 1", len(first))
	}
	clock.fire(t, false)
	advance(t, d)

	if !first[0].stopped.Load() {
		t.Errorf("previous question's ticker still armed")
	}
	if n := len(clock.active(false)); n != 1 {
		t.Errorf("armed tickers after advance = %d, want 1", n)
	}
	if snap := snapshot(t, d); snap.TimeLeft != 15 {
		t.Errorf("time left after advance = %d, want full budget", snap.TimeLeft)
	}
}

func TestDriverCompletionStopsTimer(t *testing.T) {
	d, clock, rec := startDriver(t, 15, 0, "Body Safety")

	advance(t, d)
	advance(t, d)

	if n := len(clock.active(false)); n != 0 {
		t.Errorf("armed tickers after completion = %d, want 0", n)
	}
	if len(rec.completed) != 1 {
		t.Fatalf("OnComplete calls = %d, want 1", len(rec.completed))
	}
	if rec.completed[0].Total != 2 {
		t.Errorf("result total = %d, want 2", rec.completed[0].Total)
	}
	if snap := snapshot(t, d); snap.State != StateComplete {
		t.Errorf("state = %s, want complete", snap.State)
	}
}

func TestDriverFeedbackWindow(t *testing.T) {
	d, clock, _ := startDriver(t, 15, time.Second, "")

	advance(t, d)
	if snap := snapshot(t, d); snap.State != StateAnswerShown {
		t.Fatalf("state = %s, want answer_shown", snap.State)
	}
	if n := len(clock.active(false)); n != 0 {
		t.Errorf("question ticker armed during feedback: %d", n)
	}

	clock.fire(t, true)
	if snap := snapshot(t, d); snap.State != StateAwaitingAnswer {
		t.Fatalf("state after feedback window = %s", snap.State)
	}
	if n := len(clock.active(false)); n != 1 {
		t.Errorf("armed tickers after feedback = %d, want 1", n)
	}
	if n := len(clock.active(true)); n != 0 {
		t.Errorf("feedback timers still armed: %d", n)
	}
}

func TestDriverSelectionEndsFeedbackEarly(t *testing.T) {
	d, clock, _ := startDriver(t, 15, time.Second, "")

	advance(t, d)
	if err := d.Do(context.Background(), func(s *Session) error {
		return s.SelectOption(0)
	}); err != nil {
		t.Fatalf("SelectOption: %v", err)
	}
	if n := len(clock.active(true)); n != 0 {
		t.Errorf("feedback timer armed after selection: %d", n)
	}
	if n := len(clock.active(false)); n != 1 {
		t.Errorf("armed tickers = %d, want 1", n)
	}
}

func TestDriverBadgesAndRestart(t *testing.T) {
	d, clock, rec := startDriver(t, 15, 0, "")
	correct := correctByID(testPool())

	for i := 0; i < 2; i++ {
		if err := d.Do(context.Background(), func(s *Session) error {
			if err := s.SelectOption(correct[s.Snapshot().Question.ID]); err != nil {
				return err
			}
			_, err := s.Advance()
			return err
		}); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}
	if len(rec.badges) != 2 {
		t.Fatalf("badges = %v, want two unlocks", rec.badges)
	}

	if err := d.Do(context.Background(), func(s *Session) error {
		s.Restart()
		return nil
	}); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if n := len(clock.active(false)); n != 0 {
		t.Errorf("armed tickers after restart = %d, want 0", n)
	}
	if snap := snapshot(t, d); snap.State != StateIdle || len(snap.Badges) != 0 {
		t.Errorf("after restart: state=%s badges=%v", snap.State, snap.Badges)
	}
}

func TestDriverClose(t *testing.T) {
	d, clock, _ := startDriver(t, 15, 0, "")
	d.Close()
	d.Close()

	if n := len(clock.active(false)); n != 0 {
		t.Errorf("armed tickers after close = %d, want 0", n)
	}
	err := d.Do(context.Background(), func(*Session) error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Do after Close = %v, want ErrClosed", err)
	}
}

func TestManagerSweep(t *testing.T) {
	clock := newManualClock()
	m := NewManager()
	t.Cleanup(m.Close)

	newDriver := func() *Driver {
		return NewDriver(NewSession(Config{}), DriverConfig{Clock: clock})
	}
	oldID := m.Add(newDriver())
	clock.advance(time.Hour)
	freshID := m.Add(newDriver())

	if got := m.Sweep(clock.Now(), 30*time.Minute); got != 1 {
		t.Fatalf("Sweep removed %d, want 1", got)
	}
	if _, ok := m.Get(oldID); ok {
		t.Errorf("idle session survived the sweep")
	}
	if _, ok := m.Get(freshID); !ok {
		t.Errorf("fresh session was swept")
	}
	if !m.Remove(freshID) || m.Remove(freshID) {
		t.Errorf("Remove should succeed once")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}
