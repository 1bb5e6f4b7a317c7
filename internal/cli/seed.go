package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/config"
	"quizgen/internal/domain"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Fixtures is the YAML shape accepted by the seed command.
type Fixtures struct {
	Users   []userFixture `yaml:"users"`
	Quizzes []quizFixture `yaml:"quizzes"`
}

type userFixture struct {
	ID        string `yaml:"id"`
	FirstName string `yaml:"firstName"`
	LastName  string `yaml:"lastName"`
	Email     string `yaml:"email"`
	IsActive  *bool  `yaml:"isActive"`
}

type quizFixture struct {
	ID          string            `yaml:"id"`
	Creator     string            `yaml:"creator"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	IsPublic    *bool             `yaml:"isPublic"`
	Category    string            `yaml:"category"`
	Difficulty  string            `yaml:"difficulty"`
	TimeLimit   *int              `yaml:"timeLimit"`
	Questions   []questionFixture `yaml:"questions"`
}

type questionFixture struct {
	Question string          `yaml:"question"`
	Options  []optionFixture `yaml:"options"`
}

type optionFixture struct {
	Text    string `yaml:"text"`
	Correct bool   `yaml:"correct"`
}

// NewSeedCmd loads users and quizzes from a fixtures file into the store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and quizzes from a YAML fixtures file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if file == "" {
				file = cfg.Store.Fixtures
			}
			if file == "" {
				return errors.New("no fixtures file: pass --file or set store.fixtures")
			}
			log := newLogger(cfg)
			b, err := openStores(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer b.Close()
			return seedFromFile(cmd.Context(), b.stores, file, log)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "fixtures file (defaults to store.fixtures)")
	return cmd
}

func seedFromFile(ctx context.Context, stores app.Stores, path string, log *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("parse fixtures: %w", err)
	}
	users, quizzes, err := Seed(ctx, stores, fx)
	if err != nil {
		return err
	}
	log.Info("fixtures loaded", "path", path, "users", users, "quizzes", quizzes)
	return nil
}

// Seed writes fixtures into the stores. Users are upserted; quizzes that
// already exist are left alone so seeding can be repeated.
func Seed(ctx context.Context, stores app.Stores, fx Fixtures) (users, quizzes int, err error) {
	for _, u := range fx.Users {
		if u.ID == "" {
			return users, quizzes, errors.New("fixture user without id")
		}
		user := domain.User{
			ID:        u.ID,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			Email:     u.Email,
			IsActive:  u.IsActive == nil || *u.IsActive,
		}
		if existing, err := stores.Users.GetUser(ctx, u.ID); err == nil {
			user.QuizzesCreated = existing.QuizzesCreated
			user.QuizzesTaken = existing.QuizzesTaken
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return users, quizzes, err
		}
		if err := stores.Users.SaveUser(ctx, user); err != nil {
			return users, quizzes, fmt.Errorf("save user %s: %w", u.ID, err)
		}
		users++
	}

	for _, q := range fx.Quizzes {
		if q.ID != "" {
			if _, err := stores.Quizzes.GetQuiz(ctx, q.ID); err == nil {
				continue
			} else if !errors.Is(err, domain.ErrQuizNotFound) {
				return users, quizzes, err
			}
		}
		if _, err := stores.Users.GetUser(ctx, q.Creator); err != nil {
			return users, quizzes, fmt.Errorf("quiz %q creator %q: %w", q.Title, q.Creator, err)
		}
		in := q.input().Normalize()
		if err := domain.ValidateQuiz(in); err != nil {
			return users, quizzes, fmt.Errorf("quiz %q: %w", q.Title, err)
		}
		now := time.Now().UTC()
		quiz := domain.Quiz{ID: q.ID, CreatorID: q.Creator, Attempts: []domain.Attempt{}, CreatedAt: now, UpdatedAt: now}
		in.ApplyTo(&quiz)
		created, err := stores.Quizzes.CreateQuiz(ctx, quiz)
		if err != nil {
			return users, quizzes, fmt.Errorf("create quiz %q: %w", q.Title, err)
		}
		if err := stores.Users.AddCreatedQuiz(ctx, q.Creator, created.ID); err != nil {
			return users, quizzes, err
		}
		quizzes++
	}
	return users, quizzes, nil
}

func (q quizFixture) input() domain.QuizInput {
	in := domain.QuizInput{
		Title:       q.Title,
		Description: q.Description,
		IsPublic:    q.IsPublic,
		Category:    q.Category,
		Difficulty:  q.Difficulty,
		TimeLimit:   q.TimeLimit,
	}
	for _, question := range q.Questions {
		opts := make([]domain.Option, 0, len(question.Options))
		for _, o := range question.Options {
			opts = append(opts, domain.Option{Text: o.Text, IsCorrect: o.Correct})
		}
		in.Questions = append(in.Questions, domain.Question{Question: question.Question, Options: opts})
	}
	return in
}
