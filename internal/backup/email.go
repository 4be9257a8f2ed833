package backup

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/mitsukabu/screener/internal/config"
	"github.com/mitsukabu/screener/pkg/logger"
)

// Mailer sends annotation backups over SMTP with implicit TLS.
type Mailer struct {
	cfg config.BackupConfig
}

// NewMailer creates a mailer from backup configuration
func NewMailer(cfg config.BackupConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Configured reports whether SMTP settings are present
func (m *Mailer) Configured() bool {
	return m.cfg.SMTPHost != "" && m.cfg.SMTPUser != "" && m.cfg.SMTPPass != "" && m.cfg.ToEmail != ""
}

// SendFavoritesBackup mails the current watch list and per-stock notes.
func (m *Mailer) SendFavoritesBackup(favorites []string, names map[string]string, notes map[string]string) error {
	if !m.Configured() {
		return fmt.Errorf("backup mail is not configured; set SMTP_HOST, SMTP_USER, SMTP_PASS and BACKUP_TO_EMAIL")
	}

	subject := fmt.Sprintf("Watch list backup %s", time.Now().Format("2006-01-02 15:04"))
	body := buildBody(favorites, names, notes)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.cfg.SMTPUser, m.cfg.ToEmail, subject, body)

	if err := m.send(msg); err != nil {
		return fmt.Errorf("send backup mail: %w", err)
	}
	logger.Info("backup mail sent",
		logger.Int("favorites", len(favorites)),
		logger.Int("notes", len(notes)),
	)
	return nil
}

func (m *Mailer) send(msg string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.cfg.SMTPHost})
	if err != nil {
		return fmt.Errorf("connect smtp: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	defer client.Close()

	auth := smtp.PlainAuth("", m.cfg.SMTPUser, m.cfg.SMTPPass, m.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(m.cfg.SMTPUser); err != nil {
		return err
	}
	if err := client.Rcpt(m.cfg.ToEmail); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildBody(favorites []string, names map[string]string, notes map[string]string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Watch list (%d stocks)\n", len(favorites))
	for i, code := range favorites {
		name := names[code]
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, code, name)
	}

	noted := make([]string, 0, len(notes))
	for code, note := range notes {
		if strings.TrimSpace(note) != "" {
			noted = append(noted, code)
		}
	}
	sort.Strings(noted)

	fmt.Fprintf(&b, "\nNotes (%d stocks)\n", len(noted))
	if len(noted) == 0 {
		b.WriteString("No stocks have notes.\n")
	}
	for i, code := range noted {
		name := names[code]
		if name == "" {
			name = "(unknown)"
		}
		fmt.Fprintf(&b, "%d. %s - %s: %s\n", i+1, code, name, notes[code])
	}

	return b.String()
}
