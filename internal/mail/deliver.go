package mail

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Deliverer performs the final hop for a message.
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

// SMTPDeliverer sends mail through an SMTP relay with PLAIN auth when a
// user is configured.
type SMTPDeliverer struct {
	addr string
	from string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPDeliverer creates a deliverer for addr (host:port).
func NewSMTPDeliverer(addr, user, pass, from string) *SMTPDeliverer {
	d := &SMTPDeliverer{addr: addr, from: from, send: smtp.SendMail}
	if user != "" {
		host, _, _ := net.SplitHostPort(addr)
		d.auth = smtp.PlainAuth("", user, pass, host)
	}
	return d
}

// Deliver sends msg.
func (d *SMTPDeliverer) Deliver(_ context.Context, msg Message) error {
	if err := d.send(d.addr, d.auth, d.from, []string{msg.To}, d.render(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (d *SMTPDeliverer) render(msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", d.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	fmt.Fprintf(&b, "Date: %s\r\n\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// FileDeliverer appends one line per message to a log file. Used in
// development instead of a real relay.
type FileDeliverer struct {
	mu   sync.Mutex
	path string
}

// NewFileDeliverer creates a deliverer writing to path.
func NewFileDeliverer(path string) *FileDeliverer {
	return &FileDeliverer{path: path}
}

// Deliver appends msg to the file.
func (d *FileDeliverer) Deliver(_ context.Context, msg Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(d.path), err)
	}
	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open mail log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] kind=%s | to=%s | subject=%q | body=%q\n",
		msg.CreatedAt.Format(time.RFC3339), msg.Kind, msg.To, msg.Subject, msg.Body)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write mail log: %w", err)
	}
	return nil
}
