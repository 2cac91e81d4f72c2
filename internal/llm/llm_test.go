package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		question string
		want     Topic
	}{
		{"What are the signs of abuse?", TopicAbuse},
		{"How do I know if it is abuse", TopicAbuse},
		{"Who to tell when something is wrong?", TopicReporting},
		{"Can I call a hotline?", TopicReporting},
		{"Is saying no rude?", TopicBoundaries},
		{"someone wants to touch me", TopicBoundaries},
		{"my friend is sad", TopicSupport},
		{"how can schools teach this", TopicPrevention},
		{"Tell me about the weather", TopicReporting},
		{"What is your favorite color?", TopicOther},
		{"", TopicOther},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			if got := Classify(tt.question); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}

func TestTopicValid(t *testing.T) {
	for _, tp := range Topics {
		if !tp.Valid() {
			t.Errorf("%q should be valid", tp)
		}
	}
	if Topic("weather").Valid() {
		t.Error("unknown topic reported valid")
	}
}

func langCtx(t *testing.T, lang string) context.Context {
	t.Helper()
	cat, err := appI18n.New("en")
	if err != nil {
		t.Fatalf("i18n.New: %v", err)
	}
	return cat.Context(context.Background(), lang)
}

// fakeModel serves an OpenAI-style chat completion whose content is body.
func fakeModel(t *testing.T, status int, body string) (*Client, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && len(req.Messages) > 0 {
			prompts = append(prompts, req.Messages[0].Content)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": body},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/v1", "test-key", "test"), &prompts
}

func TestClientAsk(t *testing.T) {
	c, prompts := fakeModel(t, http.StatusOK, `{"topic":"boundaries","reply":"You can always say no."}`)
	got, err := c.Ask(context.Background(), "es", "Can I say no to a hug?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	want := Reply{Topic: TopicBoundaries, Text: "You can always say no.", Source: SourceModel}
	if got != want {
		t.Errorf("Ask = %+v, want %+v", got, want)
	}
	if len(*prompts) != 1 || !strings.Contains((*prompts)[0], "Spanish") {
		t.Errorf("prompts = %q", *prompts)
	}
}

func TestClientAskUnknownTopicIsClassified(t *testing.T) {
	c, _ := fakeModel(t, http.StatusOK, `{"topic":"weather","reply":"Find a trusted adult."}`)
	got, err := c.Ask(context.Background(), "en", "who to tell")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got.Topic != TopicReporting {
		t.Errorf("topic = %q", got.Topic)
	}
}

func TestClientAskErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"not json", http.StatusOK, "sure, here you go"},
		{"empty reply", http.StatusOK, `{"topic":"support","reply":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := fakeModel(t, tt.status, tt.body)
			if _, err := c.Ask(context.Background(), "en", "hello"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

type failingAsker struct{}

func (failingAsker) Ask(context.Context, string, string) (Reply, error) {
	return Reply{}, errors.New("offline")
}

func TestHelperAnswer(t *testing.T) {
	ctx := langCtx(t, "en")

	got := NewHelper(nil).Answer(ctx, "en", "Is saying no okay?")
	if got.Source != SourceRules || got.Topic != TopicBoundaries || !strings.Contains(got.Text, "Your body belongs to you") {
		t.Errorf("rules answer = %+v", got)
	}

	got = NewHelper(failingAsker{}).Answer(ctx, "en", "what's up")
	if got.Source != SourceRules || got.Topic != TopicOther {
		t.Errorf("fallback answer = %+v", got)
	}

	c, _ := fakeModel(t, http.StatusOK, `{"topic":"support","reply":"Listen to your friend."}`)
	got = NewHelper(c).Answer(ctx, "en", "my friend is sad")
	if got.Source != SourceModel || got.Text != "Listen to your friend." {
		t.Errorf("model answer = %+v", got)
	}
}

func TestCannedIsLocalized(t *testing.T) {
	got := Canned(langCtx(t, "es"), TopicBoundaries)
	if !strings.Contains(got.Text, "Tu cuerpo te pertenece") {
		t.Errorf("Canned(es) = %q", got.Text)
	}
}
