package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lifedrop/internal/accounts"
	"lifedrop/internal/appointments"
	"lifedrop/internal/auth"
	"lifedrop/internal/db"
	"lifedrop/internal/directory"
	"lifedrop/internal/notify"
	"lifedrop/internal/requests"
	"lifedrop/internal/server"
	"lifedrop/internal/store"
	"lifedrop/internal/validate"
	"lifedrop/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const revokedTokenPurgeInterval = time.Hour

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP API",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadServeConfig(cCtx.String("env-prefix"))
	if err != nil {
		return err
	}

	logger := newLogger(config)

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	userRepo := store.NewUserRepository(pool)
	requestRepo := store.NewRequestRepository(pool)
	appointmentRepo := store.NewAppointmentRepository(pool)
	donationRepo := store.NewDonationRepository(pool)
	revokedTokenRepo := store.NewRevokedTokenRepository(pool)

	validator := validate.New()
	tokens := auth.NewTokenService([]byte(config.JWTSecret), revokedTokenRepo)

	accountService, err := accounts.New(logger, userRepo, tokens, validator, config.BcryptCost)
	if err != nil {
		return err
	}

	donorDirectory := directory.New(userRepo)

	dispatcher, err := newDispatcher(ctx, config, logger)
	if err != nil {
		return err
	}

	requestService := requests.New(
		logger,
		requestRepo,
		donorDirectory,
		dispatcher,
		validator,
		time.Duration(config.NotifyTimeoutSec)*time.Second,
	)

	appointmentService := appointments.New(logger, appointmentRepo, donationRepo, userRepo, validator)

	srv, err := server.New(
		config,
		logger,
		accountService,
		donorDirectory,
		requestService,
		appointmentService,
		tokens,
		pool,
	)
	if err != nil {
		return err
	}

	go purgeRevokedTokens(ctx, logger, revokedTokenRepo)

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}

// newDispatcher picks the mail transport named by MAIL_TRANSPORT and, when a
// bucket is configured, archives batch reports to S3.
func newDispatcher(ctx context.Context, config *types.Config, logger *logrus.Logger) (*notify.Dispatcher, error) {
	var awsConfig *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsConfig != nil {
			return *awsConfig, nil
		}
		c, err := loadAWSConfig(ctx)
		if err != nil {
			return aws.Config{}, err
		}
		awsConfig = &c
		return c, nil
	}

	var sender notify.Sender
	switch config.MailTransport {
	case "", "log":
		logger.Warn("mail transport is log, notification emails will not be delivered")
		sender = notify.NewLogSender(logger)
	case "ses":
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		sender = notify.NewSESSender(sesv2.NewFromConfig(c), config.MailFrom)
	case "smtp":
		smtpSender, err := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     config.SMTPHost,
			Port:     config.SMTPPort,
			Username: config.SMTPUsername,
			Password: config.SMTPPassword,
			From:     config.MailFrom,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure smtp transport: %w", err)
		}
		sender = smtpSender
	default:
		return nil, fmt.Errorf("unknown MAIL_TRANSPORT %q, use log, ses or smtp", config.MailTransport)
	}

	opts := []notify.Option{notify.WithConcurrency(config.NotifyConcurrency)}

	if config.NotifyArchiveBucket != "" {
		c, err := loadAWS()
		if err != nil {
			return nil, err
		}
		opts = append(opts, notify.WithArchive(notify.NewS3Archive(s3.NewFromConfig(c), config.NotifyArchiveBucket)))
		logger.WithField("bucket", config.NotifyArchiveBucket).Info("notification reports will be archived")
	}

	return notify.NewDispatcher(logger, sender, opts...), nil
}

// purgeRevokedTokens drops denylist rows whose tokens have expired anyway.
func purgeRevokedTokens(ctx context.Context, logger *logrus.Logger, repo *store.RevokedTokenRepository) {
	ticker := time.NewTicker(revokedTokenPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			purged, err := repo.Purge(ctx, now)
			if err != nil {
				logger.WithError(err).Error("failed to purge revoked tokens")
				continue
			}
			if purged > 0 {
				logger.WithField("purged", purged).Info("purged expired revoked tokens")
			}
		}
	}
}
