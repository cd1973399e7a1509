package service

import (
	"context"
	"lesson_platform_backend/internal/config"
	"lesson_platform_backend/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mailer 发送邮件
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPMailer 通过 SMTP 发送
type SMTPMailer struct {
	From   string
	Dialer *gomail.Dialer
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := ctx.Err(); err != nil {
		return err
	}
	return m.Dialer.DialAndSend(msg)
}

// LogMailer 未配置 SMTP 时使用，只写日志
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	logger.Log.Info("Mail not sent, SMTP is not configured",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}

func NewMailer(cfg config.MailConfig) Mailer {
	if cfg.Host == "" {
		return LogMailer{}
	}
	return &SMTPMailer{
		From:   cfg.From,
		Dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}
