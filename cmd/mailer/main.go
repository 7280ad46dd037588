package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"nanum/internal/config"
	"nanum/internal/logging"
	"nanum/internal/mail"
)

// The mailer drains the verification mail queue. With SMTP_ADDR set it
// delivers over SMTP, otherwise it appends each message to MAIL_LOG_PATH.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var deliverer mail.Deliverer
	if cfg.SMTPAddr != "" {
		deliverer = mail.NewSMTPDeliverer(cfg.SMTPAddr, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
		logger.Info(ctx, "delivering over smtp", "addr", cfg.SMTPAddr)
	} else {
		deliverer = mail.NewFileDeliverer(cfg.MailLogPath)
		logger.Info(ctx, "delivering to file", "path", cfg.MailLogPath)
	}

	consumer := mail.NewConsumer(cfg.AMQPURL, cfg.MailQueue, deliverer, logger)
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error(ctx, "mail consumer stopped", "error", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "mailer stopped")
}
