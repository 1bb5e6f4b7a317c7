package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quizgen/internal/app"
	"quizgen/internal/config"
	"quizgen/internal/jobs"
	"quizgen/internal/notify"
	transport "quizgen/internal/transport/http"

	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (or JWT_SECRET) must be set")
	}

	b, err := openStores(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.Store.Driver == config.DriverMemory && cfg.Store.Fixtures != "" {
		if err := seedFromFile(ctx, b.stores, cfg.Store.Fixtures, log); err != nil {
			return err
		}
	}

	notifier, closeNotifier, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	services := app.NewServices(b.stores, app.Options{
		Logger:        log,
		Notifier:      notifier,
		DefaultExpiry: config.TTLDuration(cfg.Assignment.DefaultExpiry, 0),
	})

	sweeper, err := jobs.NewExpirySweeper(services.Assignments, cfg.Assignment.SweepSchedule, log)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	router := transport.NewRouter(transport.RouterConfig{
		Services:       services,
		Logger:         log,
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Development:    cfg.Development(),
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz service", "port", finalPort, "driver", cfg.Store.Driver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	services.Drain()
	return err
}

// buildNotifier always logs; RabbitMQ and email are added when configured.
func buildNotifier(cfg config.Config, log *slog.Logger) (app.Notifier, func(), error) {
	notifiers := notify.Multi{notify.LogNotifier{Log: log}}

	publisher, err := notify.NewAMQPPublisher(cfg.Notify.AMQP.URL, cfg.Notify.AMQP.Exchange, log)
	if err != nil {
		return nil, nil, err
	}
	if publisher.Enabled() {
		notifiers = append(notifiers, publisher)
	}

	email := cfg.Notify.Email
	if email.APIKey != "" {
		mailer := notify.NewBrevoMailer(email.BaseURL, email.APIKey, email.Sender, email.SenderName)
		notifiers = append(notifiers, notify.NewEmailNotifier(mailer, email.FrontendURL))
	} else {
		log.Warn("email api key is empty, email notifications are disabled")
	}

	closeFn := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close rabbitmq publisher", "error", err)
		}
	}
	return notifiers, closeFn, nil
}
