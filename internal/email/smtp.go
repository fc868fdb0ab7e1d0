package email

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"

	"go.uber.org/zap"
)

// SMTPConfig represents email server configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
}

// Template represents an email template rendered against a dispatch payload
type Template struct {
	ID       string
	Subject  string
	TextBody string
	HTMLBody string
}

// SMTPSender delivers templated emails over SMTP
type SMTPSender struct {
	config    SMTPConfig
	logger    *zap.Logger
	templates map[string]*renderedTemplate
}

type renderedTemplate struct {
	subject *template.Template
	text    *template.Template
	html    *template.Template
}

// NewSMTPSender creates a new SMTP sender with the built-in templates registered
func NewSMTPSender(config SMTPConfig, logger *zap.Logger) (*SMTPSender, error) {
	s := &SMTPSender{
		config:    config,
		logger:    logger,
		templates: make(map[string]*renderedTemplate),
	}

	for _, tmpl := range builtinTemplates {
		if err := s.RegisterTemplate(tmpl); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RegisterTemplate parses and registers a template under its id, replacing any
// previous registration
func (s *SMTPSender) RegisterTemplate(tmpl Template) error {
	subject, err := template.New(tmpl.ID + ":subject").Parse(tmpl.Subject)
	if err != nil {
		return fmt.Errorf("failed to parse subject of template %s: %w", tmpl.ID, err)
	}
	text, err := template.New(tmpl.ID + ":text").Parse(tmpl.TextBody)
	if err != nil {
		return fmt.Errorf("failed to parse text body of template %s: %w", tmpl.ID, err)
	}
	html, err := template.New(tmpl.ID + ":html").Parse(tmpl.HTMLBody)
	if err != nil {
		return fmt.Errorf("failed to parse html body of template %s: %w", tmpl.ID, err)
	}

	s.templates[tmpl.ID] = &renderedTemplate{subject: subject, text: text, html: html}
	return nil
}

// SendTemplatedEmail renders the template identified by templateID with the
// payload and delivers it to addr.To
func (s *SMTPSender) SendTemplatedEmail(ctx context.Context, addr Addresses, templateID string, payload map[string]interface{}) error {
	tmpl, exists := s.templates[templateID]
	if !exists {
		return fmt.Errorf("email template not found: %s", templateID)
	}

	subject, err := render(tmpl.subject, payload)
	if err != nil {
		return fmt.Errorf("failed to render subject of template %s: %w", templateID, err)
	}
	textBody, err := render(tmpl.text, payload)
	if err != nil {
		return fmt.Errorf("failed to render text body of template %s: %w", templateID, err)
	}
	htmlBody, err := render(tmpl.html, payload)
	if err != nil {
		return fmt.Errorf("failed to render html body of template %s: %w", templateID, err)
	}

	if err := s.sendEmail(addr, subject, textBody, htmlBody); err != nil {
		return fmt.Errorf("failed to send email %s to %s: %w", templateID, addr.To, err)
	}

	s.logger.Info("Email sent",
		zap.String("template", templateID),
		zap.String("to", addr.To))
	return nil
}

func render(tmpl *template.Template, payload map[string]interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, payload); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (s *SMTPSender) sendEmail(addr Addresses, subject, textBody, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)

	msg := fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, addr.From)
	msg += fmt.Sprintf("To: %s\r\n", addr.To)
	if addr.ReplyTo != "" {
		msg += fmt.Sprintf("Reply-To: %s\r\n", addr.ReplyTo)
	}
	msg += fmt.Sprintf("Subject: %s\r\n", subject)
	msg += "MIME-Version: 1.0\r\n"
	msg += "Content-Type: multipart/alternative; boundary=\"boundary\"\r\n\r\n"
	msg += "--boundary\r\n"
	msg += "Content-Type: text/plain; charset=UTF-8\r\n\r\n"
	msg += textBody + "\r\n"
	msg += "--boundary\r\n"
	msg += "Content-Type: text/html; charset=UTF-8\r\n\r\n"
	msg += htmlBody + "\r\n"
	msg += "--boundary--\r\n"

	host := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(host, auth, addr.From, []string{addr.To}, []byte(msg))
}

// builtinTemplates are the templates the server ships with. The registration
// payload carries "url" and a "user" map with email, firstname, lastname and
// username.
var builtinTemplates = []Template{
	{
		ID:      "admin-registration",
		Subject: "Complete your administrator registration",
		TextBody: "Hello {{.user.firstname}} {{.user.lastname}},\r\n\r\n" +
			"An administrator account has been created for {{.user.email}}.\r\n" +
			"Complete your registration by following this link:\r\n\r\n" +
			"{{.url}}\r\n",
		HTMLBody: "<p>Hello {{.user.firstname}} {{.user.lastname}},</p>" +
			"<p>An administrator account has been created for {{.user.email}}.</p>" +
			"<p><a href=\"{{.url}}\">Complete your registration</a></p>",
	},
}
