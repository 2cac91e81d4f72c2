package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/pavelanni/shieldly/internal/model"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

// Catalog holds the UI message bundle.
type Catalog struct {
	bundle   *i18n.Bundle
	fallback language.Tag
	matcher  language.Matcher
	tags     []language.Tag
}

// New loads the embedded translations with lang as the default language.
func New(lang string) (*Catalog, error) {
	tag, err := language.Parse(lang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", lang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	// Default language first so the matcher falls back to it.
	tags := []language.Tag{tag}
	for _, t := range bundle.LanguageTags() {
		if t != tag {
			tags = append(tags, t)
		}
	}
	return &Catalog{
		bundle:   bundle,
		fallback: tag,
		matcher:  language.NewMatcher(tags),
		tags:     tags,
	}, nil
}

// Match resolves an ordered list of language preferences (tags or
// Accept-Language values) to a supported language. It never fails.
func (c *Catalog) Match(prefs ...string) string {
	for _, p := range prefs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		desired, _, err := language.ParseAcceptLanguage(p)
		if err != nil || len(desired) == 0 {
			continue
		}
		_, idx, conf := c.matcher.Match(desired...)
		if conf != language.No && idx >= 0 && idx < len(c.tags) {
			return c.tags[idx].String()
		}
	}
	return c.fallback.String()
}

// Languages returns the supported languages, default first.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.tags))
	for i, t := range c.tags {
		out[i] = t.String()
	}
	return out
}

// NewLocalizer creates a localizer for the given language.
func (c *Catalog) NewLocalizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(c.bundle, lang, c.fallback.String())
}

// Context returns ctx carrying a localizer and the resolved language.
func (c *Catalog) Context(ctx context.Context, lang string) context.Context {
	ctx = model.ContextWithLanguage(ctx, lang)
	return WithLocalizer(ctx, c.NewLocalizer(lang))
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

func localizerFromCtx(ctx context.Context) *i18n.Localizer {
	loc, _ := ctx.Value(ctxKey{}).(*i18n.Localizer)
	return loc
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
}

// Tp translates a pluralized message by ID.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	loc := localizerFromCtx(ctx)
	if loc == nil {
		slog.Warn("no localizer in context", "id", cfg.MessageID)
		return cfg.MessageID
	}
	s, err := loc.Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		return cfg.MessageID
	}
	return s
}

// TierMessageID maps a result tier to its message ID.
func TierMessageID(t model.Tier) string {
	switch t {
	case model.TierPerfect:
		return "TierPerfect"
	case model.TierGreat:
		return "TierGreat"
	case model.TierGood:
		return "TierGood"
	default:
		return "TierKeepPracticing"
	}
}

// BadgeName localizes a badge. Badges without a translation keep their name.
func BadgeName(ctx context.Context, b model.Badge) string {
	id := "Badge" + strings.ReplaceAll(string(b), " ", "")
	loc := localizerFromCtx(ctx)
	if loc == nil {
		return string(b)
	}
	s, err := loc.Localize(&i18n.LocalizeConfig{MessageID: id})
	if err != nil {
		return string(b)
	}
	return s
}
