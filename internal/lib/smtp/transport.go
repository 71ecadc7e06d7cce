package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"

	"github.com/tresoflow/entitlement-service/internal/config"
	"github.com/tresoflow/entitlement-service/internal/lib/sl"
)

// Transport устанавливает аутентифицированные SMTP-соединения для отправки
// уведомлений о пробном периоде. Сервер обязан поддерживать STARTTLS:
// учётные данные по открытому каналу не передаются.
type Transport struct {
	cfg *config.Config
	log *slog.Logger
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg *config.Config, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// clientAdapter приводит *smtp.Client к интерфейсу Client,
// чтобы сервис отправки можно было тестировать без живого SMTP-сервера.
type clientAdapter struct {
	client *smtp.Client
}

func (a *clientAdapter) Mail(from string) error {
	return a.client.Mail(from)
}

func (a *clientAdapter) Rcpt(to string) error {
	return a.client.Rcpt(to)
}

func (a *clientAdapter) Data() (io.WriteCloser, error) {
	return a.client.Data()
}

func (a *clientAdapter) Quit() error {
	return a.client.Quit()
}

func (a *clientAdapter) Close() error {
	return a.client.Close()
}

// Connect открывает соединение с SMTP-сервером, поднимает TLS
// и проходит аутентификацию. Закрытие соединения остаётся на вызывающей
// стороне через Quit или Close.
func (t *Transport) Connect() (Client, error) {
	addr := net.JoinHostPort(t.cfg.SMTPHost, t.cfg.SMTPPort)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.log.Error("failed to dial SMTP server", sl.Err(err))
		return nil, fmt.Errorf("failed to dial SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, t.cfg.SMTPHost)
	if err != nil {
		t.log.Error("failed to create SMTP client", sl.Err(err))
		t.closeQuietly(conn)
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		t.log.Error("SMTP server does not support STARTTLS")
		t.closeQuietly(client)
		return nil, fmt.Errorf("smtp server does not support STARTTLS")
	}
	tlsConfig := &tls.Config{
		ServerName: t.cfg.SMTPHost,
		MinVersion: tls.VersionTLS12,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		t.log.Error("failed to start TLS", sl.Err(err))
		t.closeQuietly(client)
		return nil, fmt.Errorf("failed to start TLS: %w", err)
	}

	auth := smtp.PlainAuth("", t.cfg.SMTPUser, t.cfg.SMTPPass, t.cfg.SMTPHost)
	if err = client.Auth(auth); err != nil {
		t.log.Error("smtp auth failed", sl.Err(err))
		t.closeQuietly(client)
		return nil, fmt.Errorf("smtp auth failed: %w", err)
	}

	return &clientAdapter{client: client}, nil
}

// GetSMTPUser возвращает имя пользователя SMTP, оно же адрес отправителя.
func (t *Transport) GetSMTPUser() string {
	return t.cfg.SMTPUser
}

func (t *Transport) closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		t.log.Error("failed to close SMTP connection", sl.Err(err))
	}
}
