package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pavelanni/shieldly/internal/content"
	"github.com/pavelanni/shieldly/internal/quiz"
)

// quizFlags registers the flags shared by every command that runs quizzes.
func quizFlags(f *pflag.FlagSet) {
	contentFlags(f)
	f.Int("time-budget", quiz.DefaultTimeBudget, "Ticks a question stays open")
	f.Duration("tick-interval", time.Second, "Wall time of one tick")
	f.Duration("feedback-window", time.Second, "How long answer feedback stays up (0 = skip)")
	f.StringArray("badge", []string{"Beginner=1", "Confident Protector=2"}, "Badge rule Name=threshold (repeatable)")
}

func contentFlags(f *pflag.FlagSet) {
	f.StringP("lang", "l", "en", "Default language (en, es, hi)")
	f.StringSlice("content", nil, "Extra question files named like quizzes_<lang>.json (repeatable)")
}

func logFlags(f *pflag.FlagSet, level string) {
	f.String("log-level", level, "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(v.GetString("log-format"), "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

// viperForCmd layers flags, SHIELDLY_* env vars and an optional shieldly.yaml
// (or .toml/.json) into a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("SHIELDLY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("shieldly")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/shieldly")
	v.AddConfigPath("/etc/shieldly")

	var notFound viper.ConfigFileNotFoundError
	switch err := v.ReadInConfig(); {
	case err == nil:
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	case !errors.As(err, &notFound):
		slog.Warn("error reading config file", "error", err)
	}
	return v
}

// badgeRules reads the badge flag. Values from env or a config file may be a
// single comma-separated string.
func badgeRules(v *viper.Viper) ([]quiz.BadgeRule, error) {
	var specs []string
	switch raw := v.Get("badge").(type) {
	case string:
		specs = strings.Split(raw, ",")
	default:
		specs = v.GetStringSlice("badge")
	}
	if len(specs) == 0 {
		return quiz.DefaultBadgeRules(), nil
	}
	return quiz.ParseBadgeRules(specs)
}

func loadContent(v *viper.Viper) (*content.Bank, error) {
	bank, err := content.LoadEmbedded(v.GetString("lang"))
	if err != nil {
		return nil, err
	}
	for _, p := range v.GetStringSlice("content") {
		if err := bank.LoadFile(p); err != nil {
			return nil, err
		}
	}
	return bank, nil
}
