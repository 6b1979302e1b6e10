package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"nestbook/internal/config"
	"nestbook/internal/credential"
	apphttp "nestbook/internal/http"
	"nestbook/internal/logging"
	"nestbook/internal/metrics"
	"nestbook/internal/notify"
	"nestbook/internal/service"
	"nestbook/internal/session"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE:  runServe,
	}
	cmd.Flags().String("server.addr", "", "listen address")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	hasher, err := credential.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	m := metrics.New(registry)

	authService := service.NewAuthService(
		st.users,
		hasher,
		credential.RandomOTP{},
		buildSender(cfg, logger),
		m,
		logger,
		service.Config{
			OTPValidity: cfg.Auth.OTPTTL,
			BaseURL:     cfg.Server.BaseURL,
		},
	)

	codec, err := session.NewCookieCodec(cfg.Session.Secret)
	if err != nil {
		return err
	}
	sessions := session.NewManager(st.sessions, codec, cfg.Session.TTL)

	limiter := apphttp.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	gin.SetMode(gin.ReleaseMode)
	router := apphttp.NewRouter(apphttp.NewHandler(apphttp.Deps{
		Auth:     authService,
		Sessions: sessions,
		Limiter:  limiter,
		Metrics:  m,
		Gatherer: registry,
		Logger:   logger,
		Cookie: apphttp.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.Secure,
		},
	}))

	go runJanitor(ctx, cfg.Session.PruneInterval, sessions, limiter, m, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return oops.Code("HTTP_SERVE_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
	return nil
}

// buildSender uses Postmark when a server token is configured and falls back to logging messages.
func buildSender(cfg config.Config, logger *logrus.Logger) notify.Sender {
	client := notify.NewPostmarkClient(cfg.Mail.PostmarkToken, cfg.Mail.From)
	if client.Configured() {
		logger.Infof("sending email through postmark as %s", cfg.Mail.From)
		return client
	}
	logger.Warn("mail.postmarktoken is not set, emails are written to the log")
	return notify.NewLogSender(logger)
}

// runJanitor periodically removes expired sessions and stale rate-limit windows until ctx is done.
func runJanitor(ctx context.Context, interval time.Duration, sessions *session.Manager, limiter *apphttp.RateLimiter, m *metrics.Metrics, logger logrus.FieldLogger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup()
			n, err := sessions.Prune(ctx)
			if err != nil {
				logging.WithError(logger, err).Warn("prune sessions")
				continue
			}
			m.RecordPruned(n)
			if n > 0 {
				logger.WithField("removed", n).Debug("pruned expired sessions")
			}
		}
	}
}
