// Package sender отправляет почтовые уведомления об окончании пробного
// периода, потребляя сообщения из очереди жизненного цикла.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tresoflow/entitlement-service/internal/lib/sl"
	"github.com/tresoflow/entitlement-service/internal/lib/smtp"
	"github.com/tresoflow/entitlement-service/internal/models"
)

// Service отправляет письма через SMTP транспорт.
type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// SendTrialExpiryNotice разбирает сообщение очереди и отправляет письмо
// пользователю о скором окончании пробного периода.
func (s *Service) SendTrialExpiryNotice(body []byte) error {
	var notice models.TrialExpiryNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		return fmt.Errorf("error unmarshalling notice: %w", err)
	}

	subject := "Votre période d'essai se termine bientôt"
	bodyText := fmt.Sprintf("Bonjour %s,\n\nVotre période d'essai se termine le %s.\n\nPensez à activer votre abonnement pour conserver l'accès.",
		notice.Username, notice.TrialEndDate.Format("02/01/2006"))
	return s.sendMail(notice.Email, subject, bodyText)
}

// SendTrialExpiredNotice отправляет письмо о завершившемся пробном периоде.
func (s *Service) SendTrialExpiredNotice(body []byte) error {
	var notice models.TrialExpiryNotice
	if err := json.Unmarshal(body, &notice); err != nil {
		return fmt.Errorf("error unmarshalling notice: %w", err)
	}

	subject := "Votre période d'essai est terminée"
	bodyText := fmt.Sprintf("Bonjour %s,\n\nVotre période d'essai s'est terminée le %s.\n\nActivez votre abonnement pour retrouver l'accès à votre compte.",
		notice.Username, notice.TrialEndDate.Format("02/01/2006"))
	return s.sendMail(notice.Email, subject, bodyText)
}

func (s *Service) sendMail(to, subject, bodyText string) error {
	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		fmt.Sprintf("From: %s", from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		_ = client.Close()
	}()

	if err = client.Mail(from); err != nil {
		s.log.Error("failed to set mail sender", sl.Err(err))
		return fmt.Errorf("failed to set mail sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		s.log.Error("failed to set recipient", sl.Err(err))
		return fmt.Errorf("failed to set recipient %s: %w", to, err)
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get write closer", sl.Err(err))
		return fmt.Errorf("failed to get write closer: %w", err)
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write message", sl.Err(err))
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close write closer", sl.Err(err))
		return fmt.Errorf("failed to close write closer: %w", err)
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return fmt.Errorf("failed to quit SMTP client: %w", err)
	}

	s.log.Info("notice sent", slog.String("to", to))
	return nil
}
