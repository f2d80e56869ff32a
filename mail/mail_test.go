package mail

import (
	"context"
	"errors"
	"go-books-api/config"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestSMTPSender_Send(t *testing.T) {
	d := &fakeDialer{}
	s := NewSMTPSender(config.MailConfig{Host: "smtp.test", Port: 587, From: "no-reply@books.test", FromName: "Books API"})
	s.dialer = d

	err := s.Send(context.Background(), []string{"a@x.com", "b@x.com"}, "Hello", "<p>hi</p>")

	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	m := d.sent[0]
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Hello"}, m.GetHeader("Subject"))
	assert.Equal(t, []string{`"Books API" <no-reply@books.test>`}, m.GetHeader("From"))
}

func TestSMTPSender_SendCancelled(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTPSender{dialer: d}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, []string{"a@x.com"}, "Hello", "body")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.sent)
}

type fakeSender struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
}

func (s *fakeSender) Send(ctx context.Context, _ []string, _, _ string) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.err
}

func TestDispatcher_DispatchAndWait(t *testing.T) {
	sender := &fakeSender{err: errors.New("relay down")}
	d := NewDispatcher(sender)

	d.Dispatch([]string{"a@x.com"}, "one", "body")
	d.Dispatch([]string{"b@x.com"}, "two", "body")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
	assert.Equal(t, 2, sender.calls)
}

func TestDispatcher_WaitTimesOut(t *testing.T) {
	sender := &fakeSender{release: make(chan struct{})}
	d := NewDispatcher(sender)
	d.Dispatch([]string{"a@x.com"}, "stuck", "body")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)

	close(sender.release)
	require.NoError(t, d.Wait(context.Background()))
}

func TestRenderVerificationEmail(t *testing.T) {
	body, err := RenderVerificationEmail("<bob>", "http://books.test/auth/verify/abc.def-ghi_j")

	require.NoError(t, err)
	assert.Contains(t, body, `href="http://books.test/auth/verify/abc.def-ghi_j"`)
	assert.Contains(t, body, "&lt;bob&gt;")
	assert.NotContains(t, body, "<bob>")
}

func TestRenderPasswordResetEmail(t *testing.T) {
	body, err := RenderPasswordResetEmail("http://books.test/auth/password-reset-confirm/abc")

	require.NoError(t, err)
	assert.Contains(t, body, `href="http://books.test/auth/password-reset-confirm/abc"`)
}
