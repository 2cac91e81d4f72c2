package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/shieldly/internal/model"
	"github.com/pavelanni/shieldly/internal/quiz"
)

const livePoll = 200 * time.Millisecond

// liveCommand is a client message on the live socket.
type liveCommand struct {
	Type  string `json:"type"` // select, hint, advance, ping
	Index *int   `json:"index,omitempty"`
}

// liveMessage is a server message on the live socket.
type liveMessage struct {
	Type     string          `json:"type"` // snapshot, result, error, pong
	Snapshot *quiz.Snapshot  `json:"snapshot,omitempty"`
	Result   *resultResponse `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// handleLive streams snapshots of one quiz session over a WebSocket and
// accepts the same commands as the REST endpoints. A snapshot is pushed
// whenever the visible state changes, ticks included. The socket closes
// after the result is sent.
func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	d, ok := h.driver(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "quizID")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.config.LiveOrigins,
	})
	if err != nil {
		slog.Warn("failed to accept live socket", "quiz", id, "error", err)
		return
	}
	defer conn.CloseNow()
	slog.Debug("live socket opened", "quiz", id)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	nudge := make(chan struct{}, 1)
	go func() {
		defer cancel()
		h.liveInput(ctx, conn, d, nudge)
	}()

	status, reason := h.liveOutput(ctx, conn, d, nudge)
	if err := conn.Close(status, reason); err != nil {
		slog.Debug("live socket close", "quiz", id, "error", err)
	}
}

func (h *Handler) liveInput(ctx context.Context, conn *websocket.Conn, d *quiz.Driver, nudge chan<- struct{}) {
	for {
		var cmd liveCommand
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				slog.Debug("live socket read", "error", err)
			}
			return
		}

		var op func(*quiz.Session) error
		switch cmd.Type {
		case "ping":
			_ = wsjson.Write(ctx, conn, liveMessage{Type: "pong"})
			continue
		case "select":
			if cmd.Index == nil {
				_ = wsjson.Write(ctx, conn, liveMessage{Type: "error", Error: "bad_request", Message: "index is required"})
				continue
			}
			idx := *cmd.Index
			op = func(s *quiz.Session) error { return s.SelectOption(idx) }
		case "hint":
			op = func(s *quiz.Session) error {
				_, err := s.ShowHint()
				return err
			}
		case "advance":
			op = func(s *quiz.Session) error {
				_, err := s.Advance()
				return err
			}
		default:
			_ = wsjson.Write(ctx, conn, liveMessage{Type: "error", Error: "bad_request", Message: "unknown command " + cmd.Type})
			continue
		}

		if err := d.Do(ctx, op); err != nil {
			if errors.Is(err, quiz.ErrClosed) || ctx.Err() != nil {
				return
			}
			_, code, msg := quizError(ctx, err)
			_ = wsjson.Write(ctx, conn, liveMessage{Type: "error", Error: code, Message: msg})
			continue
		}
		select {
		case nudge <- struct{}{}:
		default:
		}
	}
}

// liveOutput pushes changed snapshots until the quiz completes, the driver
// closes or ctx ends. It returns the close status for the socket.
func (h *Handler) liveOutput(ctx context.Context, conn *websocket.Conn, d *quiz.Driver, nudge <-chan struct{}) (websocket.StatusCode, string) {
	t := time.NewTicker(livePoll)
	defer t.Stop()

	var last []byte
	for {
		snap, err := d.Snapshot(ctx)
		switch {
		case errors.Is(err, quiz.ErrClosed):
			return websocket.StatusGoingAway, "quiz session closed"
		case err != nil:
			return websocket.StatusNormalClosure, ""
		}

		data, err := json.Marshal(snap)
		if err != nil {
			return websocket.StatusInternalError, "encode snapshot"
		}
		if !bytes.Equal(data, last) {
			last = data
			if err := wsjson.Write(ctx, conn, liveMessage{Type: "snapshot", Snapshot: &snap}); err != nil {
				return websocket.StatusNormalClosure, ""
			}
		}

		if snap.State == quiz.StateComplete {
			var res model.Result
			err := d.Do(ctx, func(s *quiz.Session) error {
				var err error
				res, err = s.Result()
				return err
			})
			if err != nil {
				return websocket.StatusNormalClosure, ""
			}
			desc := h.describeResult(ctx, res)
			if err := wsjson.Write(ctx, conn, liveMessage{Type: "result", Result: &desc}); err != nil {
				return websocket.StatusNormalClosure, ""
			}
			return websocket.StatusNormalClosure, "quiz complete"
		}

		select {
		case <-ctx.Done():
			return websocket.StatusNormalClosure, ""
		case <-d.Done():
		case <-t.C:
		case <-nudge:
		}
	}
}
