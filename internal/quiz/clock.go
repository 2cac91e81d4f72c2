package quiz

import "time"

// Ticker delivers time events until stopped. It covers both recurring tickers
// and one-shot timers.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers. Drivers take a Clock so tests can control time.
type Clock interface {
	NewTicker(d time.Duration) Ticker
	NewTimer(d time.Duration) Ticker
	Now() time.Time
}

// RealClock returns a Clock backed by package time.
func RealClock() Clock { return realClock{} }

type realClock struct{}

func (realClock) NewTicker(d time.Duration) Ticker { return realTicker{time.NewTicker(d)} }
func (realClock) NewTimer(d time.Duration) Ticker  { return realTimer{time.NewTimer(d)} }
func (realClock) Now() time.Time                   { return time.Now() }

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

type realTimer struct{ t *time.Timer }

func (r realTimer) C() <-chan time.Time { return r.t.C }
func (r realTimer) Stop()               { r.t.Stop() }
