package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/model"
	"github.com/pavelanni/shieldly/internal/quiz"
	"github.com/pavelanni/shieldly/internal/store"
)

const pollInterval = 100 * time.Millisecond

func playCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE:  runPlay,
	}
	f := cmd.Flags()
	quizFlags(f)
	f.StringP("category", "c", "", "Category to play (empty = all)")
	f.String("db", "", "Save the result to this SQLite database (empty = don't save)")
	logFlags(f, "warn")
	return cmd
}

func runPlay(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	bank, err := loadContent(v)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	catalog, err := appI18n.New(bank.Fallback())
	if err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	badges, err := badgeRules(v)
	if err != nil {
		return err
	}

	var db *store.Store
	if path := v.GetString("db"); path != "" {
		db, err = store.New(path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	lang := bank.Resolve(v.GetString("lang"))
	ctx, stop := signal.NotifyContext(catalog.Context(cmd.Context(), catalog.Match(lang)), os.Interrupt)
	defer stop()

	p := &player{
		pool:     bank.Questions(lang),
		category: v.GetString("category"),
		lang:     lang,
		session: quiz.Config{
			TimeBudget: v.GetInt("time-budget"),
			Badges:     badges,
			Language:   lang,
		},
		driver: quiz.DriverConfig{
			TickInterval:   v.GetDuration("tick-interval"),
			FeedbackWindow: v.GetDuration("feedback-window"),
		},
		db:  db,
		in:  cmd.InOrStdin(),
		out: cmd.OutOrStdout(),
	}
	return p.run(ctx)
}

type playEvent struct {
	answer *model.AnswerRecord
	badges []model.Badge
}

// player runs one quiz session against a line-oriented terminal.
type player struct {
	pool     []model.Question
	category string
	lang     string
	session  quiz.Config
	driver   quiz.DriverConfig
	db       *store.Store // optional
	in       io.Reader
	out      io.Writer

	d        *quiz.Driver
	events   chan playEvent
	byID     map[int64]model.Question
	shownPos int
	shown    quiz.State
}

func (p *player) run(ctx context.Context) error {
	p.byID = make(map[int64]model.Question, len(p.pool))
	for _, q := range p.pool {
		p.byID[q.ID] = q
	}
	p.events = make(chan playEvent, 64)

	sess := quiz.NewSession(p.session)
	if err := sess.Start(p.pool, p.category); err != nil {
		if errors.Is(err, quiz.ErrNoContent) {
			fmt.Fprintln(p.out, appI18n.T(ctx, "NoQuestions"))
		}
		return err
	}

	cfg := p.driver
	cfg.Hooks = p.hooks(sess)
	p.d = quiz.NewDriver(sess, cfg)
	defer p.d.Close()

	fmt.Fprintf(p.out, "%s\n\n", appI18n.T(ctx, "AppTitle"))
	p.shownPos = -1

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(p.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	if done, err := p.refresh(ctx); done || err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := p.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		case <-poll.C:
		}
		if done, err := p.refresh(ctx); done || err != nil {
			return err
		}
	}
}

func (p *player) hooks(sess *quiz.Session) quiz.Hooks {
	send := func(ev playEvent) {
		select {
		case p.events <- ev:
		default:
			slog.Warn("dropped quiz event")
		}
	}
	return quiz.Hooks{
		OnAnswer: func(rec model.AnswerRecord) { send(playEvent{answer: &rec}) },
		OnBadges: func(b []model.Badge) { send(playEvent{badges: b}) },
		OnComplete: func(res model.Result) {
			if p.db == nil {
				return
			}
			_, err := p.db.SaveResult(model.StoredResult{
				SessionKey:  quiz.NewSessionID(),
				Language:    p.lang,
				Category:    sess.Category(),
				CompletedAt: time.Now(),
				Result:      res,
			})
			if err != nil {
				slog.Error("failed to save result", "error", err)
			}
		},
	}
}

// handle applies one line of input. It reports whether the player quit.
func (p *player) handle(ctx context.Context, line string) bool {
	var err error
	switch {
	case line == "q":
		return true
	case line == "h":
		var hint string
		err = p.d.Do(ctx, func(s *quiz.Session) error {
			var err error
			hint, err = s.ShowHint()
			return err
		})
		if err == nil && hint != "" {
			fmt.Fprintf(p.out, "  (%s)\n", hint)
		}
	case line == "":
		err = p.d.Do(ctx, func(s *quiz.Session) error {
			_, err := s.Advance()
			return err
		})
	default:
		n, convErr := strconv.Atoi(line)
		if convErr != nil {
			fmt.Fprintln(p.out, appI18n.T(ctx, "HintPrompt"))
			return false
		}
		err = p.d.Do(ctx, func(s *quiz.Session) error { return s.SelectOption(n - 1) })
		if err == nil {
			fmt.Fprintf(p.out, "  > %d\n", n)
		}
	}
	switch {
	case err == nil, errors.Is(err, quiz.ErrInvalidState):
	case errors.Is(err, quiz.ErrOptionOutOfRange):
		fmt.Fprintln(p.out, appI18n.T(ctx, "HintPrompt"))
	default:
		slog.Warn("quiz command failed", "error", err)
	}
	return false
}

// refresh prints pending feedback and the current question when it changed.
// It reports whether the quiz is over.
func (p *player) refresh(ctx context.Context) (bool, error) {
	p.drain(ctx)

	snap, err := p.d.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return true, nil
		}
		return true, err
	}
	p.drain(ctx)

	switch snap.State {
	case quiz.StateComplete:
		p.printResult(ctx)
		return true, nil
	case quiz.StateAwaitingAnswer:
		if snap.Position == p.shownPos && p.shown == quiz.StateAwaitingAnswer {
			return false, nil
		}
		p.printQuestion(ctx, snap)
	}
	p.shownPos = snap.Position
	p.shown = snap.State
	return false, nil
}

func (p *player) drain(ctx context.Context) {
	for {
		select {
		case ev := <-p.events:
			p.printEvent(ctx, ev)
		default:
			return
		}
	}
}

func (p *player) printEvent(ctx context.Context, ev playEvent) {
	if rec := ev.answer; rec != nil {
		switch {
		case rec.TimedOut:
			fmt.Fprintln(p.out, appI18n.T(ctx, "TimeUp"))
		case rec.Correct:
			fmt.Fprintln(p.out, appI18n.T(ctx, "Correct"))
		default:
			fmt.Fprintln(p.out, appI18n.T(ctx, "Incorrect"))
		}
		if q, ok := p.byID[rec.QuestionID]; ok && q.Explanation != "" {
			fmt.Fprintf(p.out, "  %s\n", q.Explanation)
		}
		fmt.Fprintln(p.out)
	}
	for _, b := range ev.badges {
		fmt.Fprintln(p.out, appI18n.Td(ctx, "BadgeUnlocked", map[string]any{"Badge": appI18n.BadgeName(ctx, b)}))
	}
}

func (p *player) printQuestion(ctx context.Context, snap quiz.Snapshot) {
	q := snap.Question
	fmt.Fprintln(p.out, appI18n.Td(ctx, "QuestionN", map[string]any{"N": snap.Position + 1, "Prompt": q.Prompt}))
	for i, o := range q.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	fmt.Fprintf(p.out, "%s  [%s]\n", appI18n.T(ctx, "HintPrompt"), appI18n.Tp(ctx, "TimeLeft", snap.TimeLeft))
}

func (p *player) printResult(ctx context.Context) {
	var res model.Result
	err := p.d.Do(ctx, func(s *quiz.Session) error {
		var err error
		res, err = s.Result()
		return err
	})
	if err != nil {
		slog.Warn("no result", "error", err)
		return
	}
	fmt.Fprintln(p.out, appI18n.T(ctx, "QuizComplete"))
	fmt.Fprintln(p.out, appI18n.Td(ctx, "ScoreSummary", map[string]any{"Correct": res.Correct, "Total": res.Total}))
	fmt.Fprintf(p.out, "%s (%d%%)\n", appI18n.T(ctx, appI18n.TierMessageID(res.Tier)), res.Percent)
}
