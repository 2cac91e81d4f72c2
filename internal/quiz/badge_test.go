package quiz

import (
	"testing"

	"github.com/pavelanni/shieldly/internal/model"
)

func TestBadgeTrackerMonotone(t *testing.T) {
	tr := NewBadgeTracker(DefaultBadgeRules())

	steps := []struct {
		correct   int
		wantFresh int
		wantTotal int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{1, 0, 1},
		{2, 1, 2},
		{5, 0, 2},
		{0, 0, 2}, // a lower count never revokes
	}
	for _, st := range steps {
		fresh := tr.Observe(st.correct)
		if len(fresh) != st.wantFresh {
			t.Errorf("Observe(%d) fresh = %v, want %d", st.correct, fresh, st.wantFresh)
		}
		if got := len(tr.Unlocked()); got != st.wantTotal {
			t.Errorf("after Observe(%d) unlocked = %d, want %d", st.correct, got, st.wantTotal)
		}
	}
}

func TestBadgeTrackerJumpUnlocksAll(t *testing.T) {
	tr := NewBadgeTracker(DefaultBadgeRules())
	fresh := tr.Observe(3)
	want := []model.Badge{model.BadgeBeginner, model.BadgeConfidentProtector}
	if len(fresh) != 2 || fresh[0] != want[0] || fresh[1] != want[1] {
		t.Fatalf("Observe(3) = %v, want %v", fresh, want)
	}
	tr.Reset()
	if len(tr.Unlocked()) != 0 {
		t.Errorf("Reset kept %v", tr.Unlocked())
	}
}

func TestParseBadgeRules(t *testing.T) {
	rules, err := ParseBadgeRules([]string{"Star=3", " Helper = 1 "})
	if err != nil {
		t.Fatalf("ParseBadgeRules: %v", err)
	}
	if len(rules) != 2 || rules[1].Badge != "Helper" || rules[1].MinCorrect != 1 {
		t.Fatalf("rules = %+v", rules)
	}
	tr := NewBadgeTracker(rules)
	if got := tr.Observe(1); len(got) != 1 || got[0] != "Helper" {
		t.Errorf("Observe(1) = %v, want [Helper]", got)
	}

	for _, bad := range []string{"Star", "=2", "Star=0", "Star=x"} {
		if _, err := ParseBadgeRules([]string{bad}); err == nil {
			t.Errorf("ParseBadgeRules(%q) succeeded", bad)
		}
	}
}
