package services

import (
	"bytes"
	"fmt"
	"html/template"

	"ecohub-core/config"

	gomail "gopkg.in/gomail.v2"
)

// Mailer sends alert emails over SMTP.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	tmpl   *template.Template
}

type AlertEmail struct {
	RecipientName string
	ZoneName      string
	AlertType     string
	Severity      string
	Message       string
	Suggestion    string
	Timestamp     string
}

const alertTemplate = `<html>
<body style="font-family: sans-serif">
	<h2>EcoHub Alert: {{.AlertType}}</h2>
	<p>Hi {{.RecipientName}},</p>
	<p>{{.Message}}</p>
	{{if .Suggestion}}<p><b>Suggested action:</b> {{.Suggestion}}</p>{{end}}
	<p>Zone: {{.ZoneName}} | Severity: {{.Severity}} | {{.Timestamp}}</p>
</body>
</html>`

func NewMailer(conf config.SMTPConfig) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(conf.Host, conf.Port, conf.Username, conf.Password),
		from:   conf.From,
		tmpl:   template.Must(template.New("alert").Parse(alertTemplate)),
	}
}

// SendAlert delivers one templated alert email. Failures are returned to the
// caller, which aggregates them per fan-out instead of aborting it.
func (m *Mailer) SendAlert(recipient string, data AlertEmail) error {
	var body bytes.Buffer
	if err := m.tmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("error rendering alert email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", recipient)
	msg.SetHeader("Subject", fmt.Sprintf("EcoHub Alert [%s]: %s", data.Severity, data.AlertType))
	msg.SetBody("text/html", body.String())

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("error sending alert email to %s: %w", recipient, err)
	}
	return nil
}
