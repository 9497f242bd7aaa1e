// @title Lion Dance Club API
// @version 1.0
// @description Events, staff and contact API for the lion dance club website.
// @BasePath /
// @securityDefinitions.apikey SessionCookie
// @in cookie
// @name liondance_session
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"liondance/config"
	_ "liondance/docs"
	"liondance/internal/adapters/auth"
	"liondance/internal/adapters/email"
	"liondance/internal/adapters/storage"
	delivery "liondance/internal/delivery/http"
	"liondance/internal/delivery/http/controllers"
	"liondance/internal/repository/postgres"
	"liondance/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := config.NewLogger(cfg.Environment)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Infrastructure
	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(db); err != nil {
		return err
	}

	bucket, err := storage.NewS3Storage(storage.Config{
		Bucket:          cfg.S3.Bucket,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		PublicBaseURL:   cfg.S3.PublicBaseURL,
		UsePathStyle:    cfg.S3.UsePathStyle,
	})
	if err != nil {
		return err
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.SESRegion,
			AccessKeyID:        cfg.Email.SESAccessKeyID,
			SecretAccessKey:    cfg.Email.SESSecretAccessKey,
			InsecureSkipVerify: cfg.Email.SESInsecureSkipVerify,
		},
		SMTP: email.SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
		},
	}, logger)
	if err != nil {
		return err
	}

	adminRepo := postgres.NewAdminRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	orphanRepo := postgres.NewOrphanedObjectRepository(db)

	// Services
	adminService := services.NewAdminService(adminRepo, cfg.RequestTimeout)
	eventService := services.NewEventService(eventRepo, adminRepo, bucket, orphanRepo, logger, services.EventServiceConfig{
		Timeout:              cfg.RequestTimeout,
		PresignTTL:           cfg.S3.PresignTTL,
		DraftsRequireSession: cfg.DraftsRequireSession,
	})
	contactService := services.NewContactService(mailer, cfg.Email.ContactInbox, logger, cfg.RequestTimeout)
	galleryService := services.NewGalleryService(bucket, cfg.RequestTimeout)
	loginService := services.NewLoginService(adminRepo, cfg.RequestTimeout)

	if err := adminService.EnsureFounder(ctx, cfg.Founder.Name, cfg.Founder.Email); err != nil {
		return err
	}

	scheduler := cron.New()
	janitor := services.NewStorageJanitor(orphanRepo, bucket, logger, cfg.RequestTimeout)
	if _, err := janitor.Schedule(scheduler, cfg.JanitorSchedule); err != nil {
		return err
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	// Transport
	sessions := auth.NewJWTSessions(cfg.Session.Secret)
	google := auth.NewGoogleProvider(auth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	}, &http.Client{Timeout: 10 * time.Second})

	router := delivery.NewRouter(delivery.RouterConfig{
		Logger:             logger,
		Sessions:           sessions,
		Staff:              adminService,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ContactRateLimit:   cfg.ContactRateLimit,
		ContactRateWindow:  cfg.ContactRateWindow,
	}, delivery.Controllers{
		Events: controllers.NewEventController(logger, eventService, adminService),
		Admins: controllers.NewAdminController(logger, adminService),
		Auth: controllers.NewAuthController(logger, loginService, sessions, controllers.AuthConfig{
			SessionTTL:   cfg.Session.TTL,
			CookieSecure: cfg.Session.CookieSecure,
			FrontendURL:  cfg.FrontendURL,
		}, google),
		Contact: controllers.NewContactController(logger, contactService),
		Media:   controllers.NewMediaController(logger, galleryService),
		Health:  controllers.NewHealthController(logger, db),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
