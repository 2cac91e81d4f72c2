package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

type liveJSON struct {
	Type     string        `json:"type"`
	Snapshot *snapshotJSON `json:"snapshot"`
	Result   *struct {
		Correct int    `json:"correct"`
		Total   int    `json:"total"`
		Summary string `json:"summary"`
	} `json:"result"`
	Error string `json:"error"`
}

func dialLive(t *testing.T, env *testEnv, id string) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/quiz/" + id + "/live"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn, ctx
}

func readLive(t *testing.T, ctx context.Context, conn *websocket.Conn) liveJSON {
	t.Helper()
	var msg liveJSON
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, v any) {
	t.Helper()
	if err := wsjson.Write(ctx, conn, v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLiveQuiz(t *testing.T) {
	env := newTestEnv(t, testQuestions, nil)
	start := env.startQuiz(map[string]string{"category": "Online Safety"})
	conn, ctx := dialLive(t, env, start.ID)

	msg := readLive(t, ctx, conn)
	if msg.Type != "snapshot" || msg.Snapshot.State != "awaiting_answer" || msg.Snapshot.Total != 1 {
		t.Fatalf("first message = %+v", msg)
	}

	send(t, ctx, conn, map[string]any{"type": "select", "index": 9})
	if msg = readLive(t, ctx, conn); msg.Type != "error" || msg.Error != "option_out_of_range" {
		t.Fatalf("bad select reply = %+v", msg)
	}

	send(t, ctx, conn, map[string]string{"type": "ping"})
	if msg = readLive(t, ctx, conn); msg.Type != "pong" {
		t.Fatalf("ping reply = %+v", msg)
	}

	send(t, ctx, conn, map[string]any{"type": "select", "index": 2})
	msg = readLive(t, ctx, conn)
	if msg.Snapshot == nil || msg.Snapshot.Selected == nil || *msg.Snapshot.Selected != 2 {
		t.Fatalf("after select = %+v", msg)
	}

	send(t, ctx, conn, map[string]string{"type": "advance"})
	for msg.Type != "result" {
		msg = readLive(t, ctx, conn)
	}
	if msg.Result.Correct != 1 || msg.Result.Total != 1 || msg.Result.Summary != "You got 1 out of 1 correct." {
		t.Errorf("result = %+v", msg.Result)
	}

	_, _, err := conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		t.Errorf("close = %v, want normal closure", err)
	}
}

func TestLiveQuizClosedByServer(t *testing.T) {
	env := newTestEnv(t, testQuestions, nil)
	start := env.startQuiz(nil)
	conn, ctx := dialLive(t, env, start.ID)
	readLive(t, ctx, conn)

	expectStatus(t, env.do(http.MethodDelete, "/api/quiz/"+start.ID, nil), http.StatusNoContent)

	_, _, err := conn.Read(ctx)
	if websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Errorf("close = %v, want going away", err)
	}
}

func TestLiveUnknownQuiz(t *testing.T) {
	env := newTestEnv(t, testQuestions, nil)
	expectStatus(t, env.do(http.MethodGet, "/api/quiz/nope/live", nil), http.StatusNotFound)
}
