package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"portfolio/backend/internal/domain"
)

// headerSanitizer 去掉头部值中的换行，防止头部注入
var headerSanitizer = strings.NewReplacer("\r", " ", "\n", " ")

// renderMessage 将 OutboundMessage 渲染为 RFC 5322 格式的纯文本邮件
func renderMessage(msg domain.OutboundMessage, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	writeHeader := func(name, value string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, headerSanitizer.Replace(value))
	}

	writeHeader("From", msg.From)
	writeHeader("To", msg.To)
	if msg.ReplyTo != "" {
		writeHeader("Reply-To", msg.ReplyTo)
	}
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader("Date", now.Format(time.RFC1123Z))
	writeHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), messageIDDomain(msg.From)))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "text/plain; charset=utf-8")
	writeHeader("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	if _, err := qp.Write([]byte(strings.ReplaceAll(body, "\n", "\r\n"))); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	if err := qp.Close(); err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	return buf.Bytes(), nil
}

// envelopeAddress 从 "Name <addr>" 形式中取出裸地址
func envelopeAddress(value string) (string, error) {
	addr, err := mail.ParseAddress(value)
	if err != nil {
		return "", fmt.Errorf("parse address %q: %w", value, err)
	}
	return addr.Address, nil
}

func messageIDDomain(from string) string {
	addr, err := envelopeAddress(from)
	if err != nil {
		return "localhost"
	}
	if at := strings.LastIndex(addr, "@"); at >= 0 && at < len(addr)-1 {
		return addr[at+1:]
	}
	return "localhost"
}
