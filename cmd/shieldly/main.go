package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pavelanni/shieldly/internal/handler"
	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/journal"
	"github.com/pavelanni/shieldly/internal/llm"
	"github.com/pavelanni/shieldly/internal/model"
	"github.com/pavelanni/shieldly/internal/quiz"
	"github.com/pavelanni/shieldly/internal/store"
)

const sweepInterval = time.Minute

func main() {
	// A .env file only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shieldly",
		Short: "Safety quiz and journal service for kids",
	}

	serve := serveCmd()
	root.AddCommand(serve, playCmd(), exportCmd(), categoriesCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `shieldly --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP quiz server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "shieldly.db", "SQLite database path")
	quizFlags(f)
	f.Duration("session-ttl", 30*time.Minute, "Idle quiz sessions are dropped after this")
	f.Duration("login-ttl", store.DefaultLoginTTL, "Profile logins expire after this")
	f.String("journal-secret", "", "Secret for sealing sensitive journal entries (or set SHIELDLY_JOURNAL_SECRET)")
	f.String("journal-salt", "shieldly", "Salt for the journal key derivation")
	f.String("admin-token", "", "Token for content uploads (empty disables uploads)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /kids)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.StringSlice("live-origin", nil, "Extra origin patterns allowed to open live quiz sockets (e.g. app.example.com)")
	f.String("llm-url", "", "OpenAI-compatible API base URL for the safety helper (empty = canned answers only)")
	f.String("llm-key", "ollama", "API key for LLM")
	f.String("llm-model", "llama3.2", "LLM model name")
	logFlags(f, "info")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export quiz results as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "shieldly.db", "SQLite database path")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	logFlags(f, "info")
	return cmd
}

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List question categories for a language",
		RunE:  runCategories,
	}
	f := cmd.Flags()
	contentFlags(f)
	logFlags(f, "info")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if n, err := db.ProfileCount(); err == nil {
		slog.Info("database ready", "path", v.GetString("db"), "profiles", n)
	}

	lang := v.GetString("lang")
	bank, err := loadContent(v)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	catalog, err := appI18n.New(lang)
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	badges, err := badgeRules(v)
	if err != nil {
		return err
	}

	var sealer *journal.Sealer
	if secret := v.GetString("journal-secret"); secret != "" {
		sealer, err = journal.NewSealer(secret, v.GetString("journal-salt"))
		if err != nil {
			return fmt.Errorf("journal sealing: %w", err)
		}
	} else {
		slog.Warn("no journal secret set, sensitive journal entries are disabled")
	}

	var helper *llm.Helper
	if url := v.GetString("llm-url"); url != "" {
		helper = llm.NewHelper(llm.New(url, v.GetString("llm-key"), v.GetString("llm-model")))
		slog.Info("safety helper uses a model", "url", url, "model", v.GetString("llm-model"))
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.QuizConfig{
		TimeBudget:     v.GetInt("time-budget"),
		TickInterval:   v.GetDuration("tick-interval"),
		FeedbackWindow: v.GetDuration("feedback-window"),
		SessionTTL:     v.GetDuration("session-ttl"),
		LoginTTL:       v.GetDuration("login-ttl"),
		BasePath:       basePath,
		SecureCookies:  v.GetBool("secure-cookies"),
		LiveOrigins:    v.GetStringSlice("live-origin"),
	}

	h, err := handler.New(handler.Deps{
		Store:      db,
		Content:    bank,
		Catalog:    catalog,
		Sealer:     sealer,
		Badges:     badges,
		Helper:     helper,
		AdminToken: v.GetString("admin-token"),
	}, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}
	defer h.Quizzes().Close()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweep(ctx, h.Quizzes(), db, cfg.SessionTTL)

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			"addr", srv.Addr,
			"lang", lang,
			"languages", bank.Languages(),
			"time_budget", cfg.TimeBudget,
			"tick_interval", cfg.TickInterval,
			"feedback_window", cfg.FeedbackWindow,
			"base_path", basePath,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	stop()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweep drops idle quiz sessions and expired logins until ctx is done.
func sweep(ctx context.Context, quizzes *quiz.Manager, db *store.Store, ttl time.Duration) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			quizzes.Sweep(now, ttl)
			n, err := db.CleanupExpiredSessions()
			if err != nil {
				slog.Warn("failed to clean up auth sessions", "error", err)
			} else if n > 0 {
				slog.Debug("expired logins removed", "count", n)
			}
		}
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportResults()
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	w := cmd.OutOrStdout()
	if out := v.GetString("output"); out != "" && out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	slog.Info("exported results", "count", export.Count, "profiles", len(export.Profiles))
	return nil
}

func runCategories(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	bank, err := loadContent(v)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	lang := bank.Resolve(v.GetString("lang"))
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%d questions)\n", lang, len(bank.Questions(lang)))
	for _, c := range bank.Categories(lang) {
		fmt.Fprintf(out, "  %s\n", c)
	}
	return nil
}
