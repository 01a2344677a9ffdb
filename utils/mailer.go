package utils

import (
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/pedulirasa/backend/config"
)

// ErrMailNotConfigured is returned when SMTP settings are missing.
var ErrMailNotConfigured = errors.New("smtp not configured")

// Mailer sends plain text mail. Controllers depend on this so tests can capture messages.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer sends through the configured SMTP server.
type SMTPMailer struct{}

func (SMTPMailer) Send(to, subject, body string) error { return SendMail(to, subject, body) }

// SendMail sends a plain text email using SMTP settings from config.
func SendMail(to, subject, body string) error {
	cfg := config.Get()
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return ErrMailNotConfigured
	}
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	msg := buildMessage(cfg, to, subject, body)

	if !cfg.SMTPTLS {
		return smtp.SendMail(addr, auth, cfg.SMTPFrom, []string{to}, msg)
	}

	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	c, err := smtp.NewClient(conn, cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.SMTPHost}); err != nil {
			return err
		}
	}
	if cfg.SMTPUsername != "" {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(cfg.SMTPFrom); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func buildMessage(cfg config.AppConfig, to, subject, body string) []byte {
	fromName := cfg.SMTPFromName
	if fromName == "" {
		fromName = "PeduliRasa"
	}
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s <%s>\r\n", encodeHeader(fromName), cfg.SMTPFrom)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", encodeHeader(subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}

// encodeHeader applies RFC 2047 B-encoding when s has non-ASCII bytes.
func encodeHeader(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 128 {
			return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(s)) + "?="
		}
	}
	return s
}
