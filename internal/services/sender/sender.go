// Package sender отправляет письма по сообщениям из очередей уведомлений.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/subscribepro/internal/lib/sl"
	"github.com/magabrotheeeer/subscribepro/internal/lib/smtp"
	"github.com/magabrotheeeer/subscribepro/internal/services/notify"
)

// Service формирует и отправляет письма.
type Service struct {
	transport smtp.Dialer
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(transport smtp.Dialer, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

// SendVerification отправляет письмо со ссылкой подтверждения email.
func (s *Service) SendVerification(body []byte) error {
	const op = "sender.SendVerification"

	var msg notify.Verification
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if msg.Email == "" {
		return fmt.Errorf("%s: message without recipient", op)
	}

	subject := "Подтвердите email на SubscribePro"
	text := fmt.Sprintf("Здравствуйте, %s!\n\nДля завершения регистрации перейдите по ссылке:\n%s\n\nЕсли вы не регистрировались, проигнорируйте это письмо.",
		msg.Name, msg.Link)

	if err := s.sendEmail([]string{msg.Email}, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendInvoice отправляет уведомление о новом счете.
func (s *Service) SendInvoice(body []byte) error {
	const op = "sender.SendInvoice"

	var msg notify.Invoice
	if err := json.Unmarshal(body, &msg); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}
	if msg.Email == "" {
		return fmt.Errorf("%s: message without recipient", op)
	}

	subject := "Новый счет по подписке " + msg.ProductName
	text := fmt.Sprintf("Здравствуйте, %s!\n\nПо подписке %s выставлен счет на %.2f от %s.\nНомер счета: %s.",
		msg.Name, msg.ProductName, msg.Amount, msg.BillingDate.Format("02.01.2006"), msg.InvoiceID)

	if err := s.sendEmail([]string{msg.Email}, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.FromAddress()
	msg := smtp.Message{From: from, To: to, Subject: subject, Body: bodyText}.Bytes()

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err := wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err := client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to), slog.String("subject", subject))
	return nil
}
