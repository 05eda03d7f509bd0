package services

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"loanPortal/config"
)

// EmailService предоставляет методы для отправки email
type EmailService struct {
	dialer *gomail.Dialer
	from   string
	config *config.Config
}

// NewEmailService создает новый экземпляр EmailService
func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
	)

	return &EmailService{
		dialer: dialer,
		from:   cfg.SMTP.From,
		config: cfg,
	}
}

// SendEmail отправляет email
func (s *EmailService) SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %v", err)
	}

	return nil
}

// SendStatusNotification отправляет уведомление об изменении статуса заявки
func (s *EmailService) SendStatusNotification(to string, loanID uint, status string) error {
	subject := "Изменение статуса заявки на кредит"
	body := fmt.Sprintf(`
		<h2>Статус вашей заявки изменен</h2>
		<p>Номер заявки: %d</p>
		<p>Новый статус: %s</p>
		<p>Дата: %s</p>
		<p>Подробности в вашем личном кабинете.</p>
	`, loanID, status, time.Now().Format("02.01.2006 15:04:05"))

	return s.SendEmail(to, subject, body)
}
