package mailer

import (
	"context"
	"io"
	"net"
	"net/mail"
	"sync"
	"testing"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureBackend 记录收到的信封与原始邮件
type captureBackend struct {
	mu   sync.Mutex
	from string
	to   []string
	data []byte
}

func (b *captureBackend) NewSession(_ *gosmtp.Conn) (gosmtp.Session, error) {
	return &captureSession{backend: b}, nil
}

type captureSession struct {
	backend *captureBackend
	from    string
	to      []string
}

func (s *captureSession) Mail(from string, _ *gosmtp.MailOptions) error {
	s.from = from
	return nil
}

func (s *captureSession) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	s.to = append(s.to, to)
	return nil
}

func (s *captureSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	s.backend.from = s.from
	s.backend.to = s.to
	s.backend.data = data
	return nil
}

func (s *captureSession) Reset()        {}
func (s *captureSession) Logout() error { return nil }

func startSMTPServer(t *testing.T) (string, *captureBackend) {
	t.Helper()

	backend := &captureBackend{}
	server := gosmtp.NewServer(backend)
	server.Domain = "localhost"
	server.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = server.Serve(listener) }()
	t.Cleanup(func() { _ = server.Close() })

	return listener.Addr().String(), backend
}

func TestSMTPSender_Send(t *testing.T) {
	addr, backend := startSMTPServer(t)
	sender := NewSMTPSender(SMTPConfig{Addr: addr})

	err := sender.Send(context.Background(), testMessage)
	require.NoError(t, err)

	backend.mu.Lock()
	defer backend.mu.Unlock()

	assert.Equal(t, "contact@example.dev", backend.from)
	assert.Equal(t, []string{"owner@example.dev"}, backend.to)

	parsed, err := mail.ReadMessage(bytesReader(backend.data))
	require.NoError(t, err)
	assert.Equal(t, "ann@x.com", parsed.Header.Get("Reply-To"))
	assert.Equal(t, "New contact from Ann", parsed.Header.Get("Subject"))
}

func TestSMTPSender_MissingAddr(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{})
	assert.ErrorIs(t, sender.Send(context.Background(), testMessage), ErrMissingSMTPAddr)
}

func TestSMTPSender_InvalidRecipient(t *testing.T) {
	sender := NewSMTPSender(SMTPConfig{Addr: "127.0.0.1:1"})
	msg := testMessage
	msg.To = "not an address"

	assert.Error(t, sender.Send(context.Background(), msg))
}
