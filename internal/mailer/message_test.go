package mailer

import (
	"bytes"
	"io"
	"mime"
	"mime/quotedprintable"
	"net/mail"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio/backend/internal/domain"
)

func bytesReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}

func TestRenderMessage(t *testing.T) {
	msg := domain.OutboundMessage{
		From:    "Portfolio <contact@example.dev>",
		To:      "ann@x.com",
		Subject: "Grazie per avermi contattato, Ann",
		Body:    "Ciao Ann,\nè arrivato il tuo messaggio.",
	}
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	raw, err := renderMessage(msg, now)
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytesReader(raw))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, msg.Subject, subject)
	assert.Empty(t, parsed.Header.Get("Reply-To"))
	assert.Contains(t, parsed.Header.Get("Message-ID"), "@example.dev>")

	date, err := parsed.Header.Date()
	require.NoError(t, err)
	assert.True(t, now.Equal(date))

	body, err := io.ReadAll(quotedprintable.NewReader(parsed.Body))
	require.NoError(t, err)
	assert.Equal(t, "Ciao Ann,\r\nè arrivato il tuo messaggio.", string(body))
}

func TestRenderMessage_StripsHeaderInjection(t *testing.T) {
	msg := domain.OutboundMessage{
		From:    "contact@example.dev",
		To:      "owner@example.dev",
		Subject: "New contact from Ann\r\nBcc: victim@example.com",
		Body:    "hi",
	}

	raw, err := renderMessage(msg, time.Now())
	require.NoError(t, err)

	parsed, err := mail.ReadMessage(bytesReader(raw))
	require.NoError(t, err)
	assert.Empty(t, parsed.Header.Get("Bcc"))
}
