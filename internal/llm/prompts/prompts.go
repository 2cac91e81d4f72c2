// Package prompts renders the system prompt sent to the helper model.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

// MaxMessageRunes caps how much of a child's message reaches the model.
const MaxMessageRunes = 1000

var childMessageRegex = regexp.MustCompile(`(?i)</?\s*child-message\b[^>]*>`)

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"hi": "Hindi",
}

var (
	loadOnce sync.Once
	loadErr  error
	helper   *template.Template
)

// HelperData holds template data for the helper prompt.
type HelperData struct {
	Language string
	Topics   []string
	Message  string
}

func load() error {
	loadOnce.Do(func() {
		helper, loadErr = template.ParseFS(templateFS, "templates/helper.txt")
		if loadErr != nil {
			loadErr = fmt.Errorf("parse helper prompt: %w", loadErr)
		}
	})
	return loadErr
}

// BuildHelperPrompt renders the prompt for one question in lang.
func BuildHelperPrompt(lang string, topics []string, message string) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	data := HelperData{
		Language: LanguageName(lang),
		Topics:   topics,
		Message:  Sanitize(message),
	}
	var buf bytes.Buffer
	if err := helper.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LanguageName returns the English name of a language code, or the code itself.
func LanguageName(lang string) string {
	if name, ok := languageNames[lang]; ok {
		return name
	}
	return lang
}

// Sanitize strips tags that could close the message block early and caps the length.
func Sanitize(message string) string {
	message = childMessageRegex.ReplaceAllString(message, "")
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > MaxMessageRunes {
		message = string([]rune(message)[:MaxMessageRunes])
	}
	return message
}
