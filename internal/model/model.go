package model

import (
	"context"
	"time"
)

// Question is a single multiple-choice safety question.
type Question struct {
	ID           int64    `json:"id"`
	Prompt       string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Hint         string   `json:"hint,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
	Category     string   `json:"category,omitempty"`
	Audio        string   `json:"audio,omitempty"`
}

// AnswerRecord is the outcome of one question in a quiz session.
type AnswerRecord struct {
	QuestionID int64 `json:"question_id"`
	Position   int   `json:"position"`
	Selected   *int  `json:"selected,omitempty"` // nil when nothing was selected
	Correct    bool  `json:"correct"`
	TimedOut   bool  `json:"timed_out"`
}

// Tier is the qualitative label derived from the correct-answer ratio.
type Tier string

const (
	TierPerfect        Tier = "Perfect"
	TierGreat          Tier = "Great"
	TierGood           Tier = "Good"
	TierKeepPracticing Tier = "Keep practicing"
)

// Badge is an achievement unlocked by cumulative correct answers.
type Badge string

const (
	BadgeBeginner           Badge = "Beginner"
	BadgeConfidentProtector Badge = "Confident Protector"
)

// Result is the final payload of a completed quiz session.
type Result struct {
	Correct int            `json:"correct"`
	Total   int            `json:"total"`
	Percent int            `json:"percent"`
	Tier    Tier           `json:"tier"`
	Answers []AnswerRecord `json:"answers"`
	Badges  []Badge        `json:"badges"`
}

// StoredResult is a persisted quiz result.
type StoredResult struct {
	ID          int64     `json:"id"`
	ProfileID   *int64    `json:"profile_id,omitempty"`
	SessionKey  string    `json:"session_key"`
	Language    string    `json:"language"`
	Category    string    `json:"category"`
	CompletedAt time.Time `json:"completed_at"`
	Result
}

// Profile is a child profile using the app.
type Profile struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	PINHash   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// HasPIN reports whether the profile is protected by a PIN.
func (p Profile) HasPIN() bool {
	return p.PINHash != ""
}

// AuthSession represents a logged-in profile session.
type AuthSession struct {
	ID        string
	ProfileID int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UnlockedBadge is a badge persisted for a profile.
type UnlockedBadge struct {
	Name       Badge     `json:"name"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Mood is the mood tag attached to a journal entry.
type Mood string

const (
	MoodHappy  Mood = "happy"
	MoodSad    Mood = "sad"
	MoodAngry  Mood = "angry"
	MoodScared Mood = "scared"
	MoodOkay   Mood = "okay"
)

// Moods lists the moods in display order.
var Moods = []Mood{MoodHappy, MoodSad, MoodAngry, MoodScared, MoodOkay}

// Valid reports whether m is one of Moods.
func (m Mood) Valid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

// JournalEntry is a private journal entry. Sensitive entries are stored sealed.
type JournalEntry struct {
	ID        int64     `json:"id"`
	ProfileID int64     `json:"profile_id"`
	Mood      Mood      `json:"mood"`
	Content   string    `json:"content"`
	Sensitive bool      `json:"is_sensitive"`
	Sealed    []byte    `json:"-"`
	CreatedAt time.Time `json:"date"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Avatar holds the avatar builder choices for a profile.
type Avatar struct {
	Style    string `json:"style"`
	Hair     string `json:"hair"`
	SkinTone string `json:"skin_tone"`
}

// Avatar option sets.
var (
	AvatarStyles    = []string{"Casual", "Sporty", "Formal"}
	AvatarHair      = []string{"Short", "Long", "Curly"}
	AvatarSkinTones = []string{"Light", "Medium", "Dark"}
)

// DefaultAvatar is the avatar shown before a profile customizes it.
var DefaultAvatar = Avatar{Style: "Casual", Hair: "Short", SkinTone: "Medium"}

// QuizConfig holds runtime quiz parameters set via CLI flags.
type QuizConfig struct {
	TimeBudget     int           // ticks per question
	TickInterval   time.Duration // wall time of one tick
	FeedbackWindow time.Duration // 0 means continue immediately
	SessionTTL     time.Duration // idle sessions are swept after this
	LoginTTL       time.Duration // profile logins expire after this
	BasePath       string        // URL prefix for sub-path deployments
	SecureCookies  bool
	LiveOrigins    []string // extra origin patterns allowed on the live socket
}

type profileCtxKey struct{}

// ContextWithProfile stores the logged-in profile in the request context.
func ContextWithProfile(ctx context.Context, p *Profile) context.Context {
	return context.WithValue(ctx, profileCtxKey{}, p)
}

// ProfileFromContext retrieves the logged-in profile from context, or nil.
func ProfileFromContext(ctx context.Context) *Profile {
	p, _ := ctx.Value(profileCtxKey{}).(*Profile)
	return p
}

type langCtxKey struct{}

// ContextWithLanguage stores the resolved UI language in context.
func ContextWithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langCtxKey{}, lang)
}

// LanguageFromContext retrieves the resolved UI language (empty string if not set).
func LanguageFromContext(ctx context.Context) string {
	l, _ := ctx.Value(langCtxKey{}).(string)
	return l
}
