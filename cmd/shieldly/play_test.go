package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/model"
	"github.com/pavelanni/shieldly/internal/quiz"
	"github.com/pavelanni/shieldly/internal/store"
)

var playPool = []model.Question{{
	ID:           7,
	Prompt:       "Should you keep a secret that makes you feel bad?",
	Options:      []string{"Yes", "No, tell a trusted adult"},
	CorrectIndex: 1,
	Hint:         "Think about who can help",
	Explanation:  "Bad secrets should be shared with someone you trust.",
	Category:     "Trusted Adults",
}}

func playContext(t *testing.T) context.Context {
	t.Helper()
	cat, err := appI18n.New("en")
	if err != nil {
		t.Fatalf("i18n.New: %v", err)
	}
	ctx, cancel := context.WithTimeout(cat.Context(context.Background(), "en"), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPlayAnswersFromInput(t *testing.T) {
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer db.Close()

	var out bytes.Buffer
	p := &player{
		pool:    playPool,
		lang:    "en",
		session: quiz.Config{TimeBudget: 15},
		driver:  quiz.DriverConfig{TickInterval: time.Hour},
		db:      db,
		in:      strings.NewReader("h\n9\n2\n\n"),
		out:     &out,
	}
	if err := p.run(playContext(t)); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Q1: Should you keep a secret",
		"2) No, tell a trusted adult",
		"(Think about who can help)",
		"Correct!",
		"Bad secrets should be shared",
		"Badge unlocked: Beginner",
		"You got 1 out of 1 correct.",
		"Perfect! (100%)",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	results, err := db.ListResults(nil)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 1 || results[0].Correct != 1 || results[0].Category != "" {
		t.Errorf("saved results = %+v", results)
	}
}

func TestPlayTimesOut(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	var out bytes.Buffer
	p := &player{
		pool:    playPool,
		lang:    "en",
		session: quiz.Config{TimeBudget: 1},
		driver:  quiz.DriverConfig{TickInterval: 10 * time.Millisecond},
		in:      pr,
		out:     &out,
	}
	if err := p.run(playContext(t)); err != nil {
		t.Fatalf("run: %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "Time's up!") || !strings.Contains(got, "You got 0 out of 1 correct.") {
		t.Errorf("unexpected output:\n%s", got)
	}
}

func TestPlayNoContent(t *testing.T) {
	var out bytes.Buffer
	p := &player{in: strings.NewReader(""), out: &out}
	err := p.run(playContext(t))
	if !errors.Is(err, quiz.ErrNoContent) {
		t.Fatalf("run = %v, want ErrNoContent", err)
	}
	if !strings.Contains(out.String(), "No questions available") {
		t.Errorf("output = %q", out.String())
	}
}

func TestBadgeRulesFromConfig(t *testing.T) {
	cmd := serveCmd()
	if err := cmd.Flags().Set("badge", "Star=3"); err != nil {
		t.Fatalf("set badge: %v", err)
	}
	rules, err := badgeRules(viperForCmd(cmd))
	if err != nil {
		t.Fatalf("badgeRules: %v", err)
	}
	if len(rules) != 1 || rules[0].Badge != "Star" || rules[0].MinCorrect != 3 {
		t.Errorf("rules = %+v", rules)
	}

	t.Setenv("SHIELDLY_BADGE", "Beginner=1,Confident Protector=2")
	rules, err = badgeRules(viperForCmd(serveCmd()))
	if err != nil {
		t.Fatalf("badgeRules(env): %v", err)
	}
	if len(rules) != 2 || rules[1].Badge != model.BadgeConfidentProtector {
		t.Errorf("env rules = %+v", rules)
	}
}
