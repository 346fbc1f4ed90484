package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msgs...)
	return nil
}

func TestMailerSend(t *testing.T) {
	sender := &fakeSender{}
	m := &Mailer{sender: sender, from: "no-reply@blog.test"}

	require.NoError(t, m.Send(context.Background(), "jane@example.com", "Your code", "123456"))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"<jane@example.com>"}, msg.GetToString())
	assert.Equal(t, []string{"Your code"}, msg.GetGenHeader(mail.HeaderSubject))
}

func TestMailerRejectsBadRecipient(t *testing.T) {
	sender := &fakeSender{}
	m := &Mailer{sender: sender, from: "no-reply@blog.test"}

	assert.Error(t, m.Send(context.Background(), "not an address", "s", "b"))
	assert.Empty(t, sender.sent)
}

func TestMailerSendFailure(t *testing.T) {
	m := &Mailer{sender: &fakeSender{err: errors.New("connection refused")}, from: "no-reply@blog.test"}

	assert.Error(t, m.Send(context.Background(), "jane@example.com", "s", "b"))
}
