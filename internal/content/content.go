// Package content loads per-language question banks and resolves the
// language a request should be served in.
package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"github.com/pavelanni/shieldly/internal/model"
	"github.com/pavelanni/shieldly/internal/quiz"
)

//go:embed data/*.json
var dataFS embed.FS

// Bank holds question pools keyed by language. It is safe for concurrent use.
type Bank struct {
	mu        sync.RWMutex
	fallback  language.Tag
	tags      []language.Tag
	supported []language.Tag
	matcher   language.Matcher
	pools     map[string][]model.Question
}

// New returns an empty bank that falls back to the given language.
func New(fallback string) (*Bank, error) {
	tag, err := language.Parse(fallback)
	if err != nil {
		return nil, fmt.Errorf("parse fallback language %q: %w", fallback, err)
	}
	b := &Bank{fallback: tag, pools: make(map[string][]model.Question)}
	b.rebuildMatcher()
	return b, nil
}

// LoadEmbedded returns a bank filled with the built-in question sets.
func LoadEmbedded(fallback string) (*Bank, error) {
	b, err := New(fallback)
	if err != nil {
		return nil, err
	}
	if err := b.LoadFS(dataFS, "data"); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadFS loads every quizzes_<lang>.json file in dir.
func (b *Bank) LoadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read content dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("read content file %s: %w", e.Name(), err)
		}
		if _, _, err := b.LoadBytes(e.Name(), data); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads a single question file from disk. The language is taken
// from the file name suffix, as in quizzes_hi.json.
func (b *Bank) LoadFile(p string) error {
	data, err := os.ReadFile(p)
	if err != nil {
		return fmt.Errorf("read %s: %w", p, err)
	}
	_, _, err = b.LoadBytes(filepath.Base(p), data)
	return err
}

// LoadBytes parses the JSON question list in data and adds it under the
// language named by the file name. It returns that language and the number
// of questions added.
func (b *Bank) LoadBytes(name string, data []byte) (string, int, error) {
	lang, err := LanguageFromFileName(name)
	if err != nil {
		return "", 0, err
	}
	var questions []model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return "", 0, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := b.Add(lang, questions); err != nil {
		return "", 0, fmt.Errorf("load %s: %w", name, err)
	}
	slog.Info("loaded questions", "file", name, "lang", lang, "count", len(questions))
	return lang, len(questions), nil
}

// LanguageFromFileName extracts the language tag from names like
// quizzes_en.json.
func LanguageFromFileName(name string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	i := strings.LastIndex(base, "_")
	if i < 0 || i == len(base)-1 {
		return "", fmt.Errorf("content file %q: want <name>_<lang>.json", name)
	}
	tag, err := language.Parse(base[i+1:])
	if err != nil {
		return "", fmt.Errorf("content file %q: %w", name, err)
	}
	return tag.String(), nil
}

// Add validates questions and appends them to the pool for lang.
func (b *Bank) Add(lang string, questions []model.Question) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}
	key := tag.String()

	b.mu.Lock()
	defer b.mu.Unlock()
	pool := b.pools[key]

	ids := make(map[int64]bool, len(pool)+len(questions))
	for _, q := range pool {
		ids[q.ID] = true
	}
	for _, q := range questions {
		if strings.TrimSpace(q.Prompt) == "" {
			return fmt.Errorf("question %d: empty prompt: %w", q.ID, quiz.ErrInvalidQuestion)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d: need at least two options: %w", q.ID, quiz.ErrInvalidQuestion)
		}
		if err := quiz.ValidateQuestion(q); err != nil {
			return err
		}
		if ids[q.ID] {
			return fmt.Errorf("question %d: duplicate id for %s: %w", q.ID, key, quiz.ErrInvalidQuestion)
		}
		ids[q.ID] = true
		pool = append(pool, q)
	}

	if _, ok := b.pools[key]; !ok {
		b.tags = append(b.tags, tag)
	}
	b.pools[key] = pool
	b.rebuildMatcher()
	return nil
}

func (b *Bank) rebuildMatcher() {
	// The first tag is the matcher's default, so the fallback goes first.
	supported := []language.Tag{b.fallback}
	for _, t := range b.tags {
		if t != b.fallback {
			supported = append(supported, t)
		}
	}
	b.supported = supported
	b.matcher = language.NewMatcher(supported)
}

// Resolve maps a requested language to one the bank can serve. Empty,
// malformed and unsupported requests resolve to the fallback language.
func (b *Bank) Resolve(lang string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.resolve(lang)
}

func (b *Bank) resolve(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return b.fallback.String()
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return b.fallback.String()
	}
	_, idx, conf := b.matcher.Match(tag)
	if conf == language.No || idx < 0 || idx >= len(b.supported) {
		return b.fallback.String()
	}
	return b.supported[idx].String()
}

// Questions returns a copy of the pool for the resolved language.
func (b *Bank) Questions(lang string) []model.Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	pool := b.pools[b.resolve(lang)]
	out := make([]model.Question, len(pool))
	copy(out, pool)
	return out
}

// Categories returns the distinct categories for the resolved language in
// first-seen order.
func (b *Bank) Categories(lang string) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := make(map[string]bool)
	cats := []string{}
	for _, q := range b.pools[b.resolve(lang)] {
		c := strings.TrimSpace(q.Category)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cats = append(cats, c)
	}
	return cats
}

// Languages returns the languages with loaded content, fallback first.
func (b *Bank) Languages() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []string{}
	if _, ok := b.pools[b.fallback.String()]; ok {
		out = append(out, b.fallback.String())
	}
	for _, t := range b.tags {
		if t != b.fallback {
			out = append(out, t.String())
		}
	}
	return out
}

// Fallback returns the default language.
func (b *Bank) Fallback() string { return b.fallback.String() }
