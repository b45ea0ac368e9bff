// Package sender отправляет письма-подтверждения оплаты,
// получая сообщения из очереди RabbitMQ.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	smtplib "github.com/magabrotheeeer/stock-signals/internal/lib/smtp"
	"github.com/magabrotheeeer/stock-signals/internal/lib/sl"
	"github.com/magabrotheeeer/stock-signals/internal/models"
)

// Transport описывает почтовый транспорт.
type Transport interface {
	Connect() (smtplib.Client, error)
	GetSMTPUser() string
}

// SenderService отправляет уведомления пользователям по email.
type SenderService struct {
	transport Transport
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport Transport, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendPaymentConfirmation отправляет письмо о выданном платном доступе.
// body — сообщение из очереди billing.granted.
func (s *SenderService) SendPaymentConfirmation(body []byte) error {
	var message models.GrantNotification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("error unmarshalling message: %w", err)
	}

	to := []string{message.Email}
	subject := "Payment confirmed"
	bodyText := fmt.Sprintf("Hello!\n\nYour payment via %s was received and your account now has full access to all trading signals.\n\nPayment reference: %s",
		message.Gateway, message.EventID)

	return s.sendEmail(to, subject, bodyText)
}

// sendEmail отправляет письмо через SMTP-транспорт.
func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	const op = "sender.sendEmail"
	client, err := s.transport.Connect()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if quitErr := client.Quit(); quitErr != nil {
			s.log.Warn("failed to quit smtp session", sl.Err(quitErr))
		}
	}()

	from := s.transport.GetSMTPUser()
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"",
		bodyText,
	}, "\r\n")

	if _, err := writer.Write([]byte(msg)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("payment confirmation sent", slog.String("to", strings.Join(to, ", ")))
	return nil
}
