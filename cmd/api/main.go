package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tjdests/tjdests/internal/config"
	"github.com/tjdests/tjdests/internal/logging"
	"github.com/tjdests/tjdests/internal/repository/ports"
	"github.com/tjdests/tjdests/internal/repository/postgres"
	redisrepo "github.com/tjdests/tjdests/internal/repository/redis"
	"github.com/tjdests/tjdests/internal/service"
	transport "github.com/tjdests/tjdests/internal/transport/http"
	"github.com/tjdests/tjdests/internal/transport/mail"
	"github.com/tjdests/tjdests/internal/util"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logOpts := logging.Options{Environment: cfg.AppEnv, Level: cfg.LogLevel, Format: cfg.LogFormat}
	var sink *logging.LogstashSink
	if cfg.LogstashTCPAddr != "" {
		var err error
		sink, err = logging.NewLogstashSink(cfg.LogstashTCPAddr)
		if err != nil {
			panic(err)
		}
		logOpts.Logstash = sink
	}
	logger := logging.New(logOpts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, cfg, logger)
	stop()

	if err != nil {
		logger.Error("api stopped", zap.Error(err))
	}
	_ = logger.Sync()
	if sink != nil {
		_ = sink.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	store := postgres.NewStore(db)

	var attempts ports.LoginAttemptStore
	if cfg.RedisURL != "" {
		client, err := redisrepo.NewClient(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		attempts = redisrepo.NewLoginAttemptStore(client)
	} else {
		logger.Warn("REDIS_URL not set, login lockout disabled")
	}

	var notifier service.PasswordChangeNotifier
	mailer := mail.NewPasswordChangedMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	if mailer.Configured() {
		notifier = mailer
	}

	authService := service.NewAuthService(store, attempts, notifier, util.NewJWTManager(cfg.JWTSecret, cfg.SessionTTL), service.AuthConfig{
		MaxFailures:       cfg.LoginMaxFailures,
		LockoutWindow:     cfg.LoginLockoutWindow,
		LoginLocked:       cfg.LoginLocked,
		Maintainer:        cfg.Maintainer,
		PasswordMinLength: cfg.PasswordMinLength,
	}, logger.Named("auth"))

	e := transport.NewRouter(cfg.AllowOrigins, logger.Named("http"))
	transport.UseSessions(e, authService)
	transport.RegisterPages(e)
	transport.RegisterAuth(e, authService, cfg.SessionCookieSecure)
	transport.RegisterDestinations(e, service.NewDestinationService(store))
	transport.RegisterProfile(e, service.NewProfileService(store))
	transport.RegisterSwagger(e, transport.DefaultSwaggerSpec)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api listening", zap.String("addr", server.Addr), zap.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
