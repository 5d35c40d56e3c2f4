package utils

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"
)

// Mailer delivers templated emails. A nil Mailer means email is disabled.
type Mailer interface {
	Send(data EmailData) error
}

type EmailData struct {
	Subject  string
	To       []string
	Template string
	Data     interface{}
}

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
}

// Embedded email templates
var emailTemplates = map[string]string{
	"update_request": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Update requested</title>
</head>
<body>
    <h2>{{.Sender}} requested an update</h2>
    <p>Team: <strong>{{.Team}}</strong></p>
    <p>{{.Message}}</p>
    <p>© {{.Year}} Taskhub</p>
</body>
</html>`,

	"task_overdue": `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Task overdue</title>
</head>
<body>
    <h2>Task overdue</h2>
    <p><strong>{{.Title}}</strong> was due on {{.DueDate}} and is still {{.Status}}.</p>
    <p>© {{.Year}} Taskhub</p>
</body>
</html>`,
}

type SMTPMailer struct {
	dialer    *gomail.Dialer
	fromEmail string
	fromName  string
}

// NewSMTPMailer returns nil when no SMTP host is configured.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Host == "" {
		return nil
	}
	return &SMTPMailer{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

// RenderEmail executes the named template against data.
func RenderEmail(name string, data interface{}) (string, error) {
	tmplContent, ok := emailTemplates[name]
	if !ok {
		return "", fmt.Errorf("template '%s' not found", name)
	}

	tmpl, err := template.New(name).Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("error parsing template: %w", err)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", fmt.Errorf("error executing template: %w", err)
	}
	return body.String(), nil
}

func (m *SMTPMailer) Send(data EmailData) error {
	if len(data.To) == 0 {
		return nil
	}

	body, err := RenderEmail(data.Template, data.Data)
	if err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", msg.FormatAddress(m.fromEmail, m.fromName))
	msg.SetHeader("To", data.To...)
	msg.SetHeader("Subject", data.Subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// TemplateYear is the copyright year rendered in email footers.
func TemplateYear() int {
	return time.Now().Year()
}
