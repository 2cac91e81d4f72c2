package quiz

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pavelanni/shieldly/internal/model"
)

// BadgeRule unlocks Badge once the running correct count reaches MinCorrect.
type BadgeRule struct {
	Badge      model.Badge
	MinCorrect int
}

// DefaultBadgeRules returns the stock badge ladder.
func DefaultBadgeRules() []BadgeRule {
	return []BadgeRule{
		{Badge: model.BadgeBeginner, MinCorrect: 1},
		{Badge: model.BadgeConfidentProtector, MinCorrect: 2},
	}
}

// ParseBadgeRules parses rules written as "Name=threshold".
func ParseBadgeRules(entries []string) ([]BadgeRule, error) {
	rules := make([]BadgeRule, 0, len(entries))
	for _, raw := range entries {
		name, num, ok := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("badge rule %q: want Name=threshold", raw)
		}
		n, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("badge rule %q: threshold must be a positive integer", raw)
		}
		rules = append(rules, BadgeRule{Badge: model.Badge(name), MinCorrect: n})
	}
	return rules, nil
}

// BadgeTracker unlocks badges from a running correct count. The unlocked set
// only grows until Reset.
type BadgeTracker struct {
	rules    []BadgeRule
	unlocked []model.Badge
	seen     map[model.Badge]bool
}

// NewBadgeTracker returns a tracker with nothing unlocked.
func NewBadgeTracker(rules []BadgeRule) *BadgeTracker {
	sorted := make([]BadgeRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinCorrect < sorted[j].MinCorrect
	})
	return &BadgeTracker{rules: sorted, seen: make(map[model.Badge]bool)}
}

// Observe evaluates the rules against correct and returns the badges that
// were unlocked by this call.
func (t *BadgeTracker) Observe(correct int) []model.Badge {
	var fresh []model.Badge
	for _, r := range t.rules {
		if correct < r.MinCorrect {
			break
		}
		if t.seen[r.Badge] {
			continue
		}
		t.seen[r.Badge] = true
		t.unlocked = append(t.unlocked, r.Badge)
		fresh = append(fresh, r.Badge)
	}
	return fresh
}

// Unlocked returns the unlocked badges in unlock order.
func (t *BadgeTracker) Unlocked() []model.Badge {
	out := make([]model.Badge, len(t.unlocked))
	copy(out, t.unlocked)
	return out
}

// Reset clears the unlocked set.
func (t *BadgeTracker) Reset() {
	t.unlocked = nil
	t.seen = make(map[model.Badge]bool)
}
