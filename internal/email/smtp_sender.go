package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const resetSubject = "Restablece tu contraseña"

// transport entrega un mensaje ya armado; smtp.SendMail cumple la firma.
type transport func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender entrega el enlace de reset por SMTP. Con useTLS abre la
// conexión con TLS implícito (puerto 465); si no, SendMail usa STARTTLS
// cuando el servidor lo anuncia.
type SMTPSender struct {
	addr     string
	host     string
	auth     smtp.Auth
	from     mail.Address
	envelope string
	send     transport
	now      func() time.Time
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPSender, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	envelope := strings.TrimSpace(from)
	if envelope == "" {
		envelope = strings.TrimSpace(username)
	}
	if envelope == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}

	s := &SMTPSender{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		host:     host,
		from:     mail.Address{Name: strings.TrimSpace(fromName), Address: envelope},
		envelope: envelope,
		send:     smtp.SendMail,
		now:      time.Now,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	if useTLS {
		s.send = s.sendImplicitTLS
	}
	return s, nil
}

func (s *SMTPSender) SendPasswordReset(_ context.Context, toEmail, name, resetURL string, expiresAt time.Time) error {
	toEmail = strings.TrimSpace(toEmail)
	if toEmail == "" {
		return fmt.Errorf("to email is required")
	}
	msg := resetMessage{
		from:    s.from,
		to:      mail.Address{Name: strings.TrimSpace(name), Address: toEmail},
		subject: resetSubject,
		date:    s.now(),
		body:    passwordResetBody(name, resetURL, expiresAt),
	}
	if err := s.send(s.addr, s.auth, s.envelope, []string{toEmail}, msg.bytes()); err != nil {
		return fmt.Errorf("smtp send to %s: %w", s.addr, err)
	}
	return nil
}

// sendImplicitTLS replica smtp.SendMail sobre una conexión ya cifrada.
func (s *SMTPSender) sendImplicitTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.host})
	if err != nil {
		return err
	}
	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return err
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// resetMessage es un correo text/plain de una sola parte.
type resetMessage struct {
	from    mail.Address
	to      mail.Address
	subject string
	date    time.Time
	body    string
}

func (m resetMessage) bytes() []byte {
	var buf bytes.Buffer
	header := func(key, value string) {
		buf.WriteString(key)
		buf.WriteString(": ")
		buf.WriteString(value)
		buf.WriteString("\r\n")
	}
	header("From", m.from.String())
	header("To", m.to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", m.subject))
	header("Date", m.date.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="UTF-8"`)
	header("Content-Transfer-Encoding", "8bit")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(m.body, "\n", "\r\n"))
	return buf.Bytes()
}

func passwordResetBody(name, resetURL string, expiresAt time.Time) string {
	var b strings.Builder
	if name = strings.TrimSpace(name); name != "" {
		b.WriteString("Hola " + name + ",\n\n")
	} else {
		b.WriteString("Hola,\n\n")
	}
	b.WriteString("Recibimos una solicitud para restablecer la contraseña de tu cuenta.\n\n")
	b.WriteString("Abre este enlace para elegir una contraseña nueva:\n")
	b.WriteString(resetURL + "\n\n")
	b.WriteString("El enlace vence el " + expiresAt.UTC().Format(time.RFC3339) + ".\n\n")
	b.WriteString("Si no pediste el cambio, ignora este correo.\n")
	return b.String()
}
