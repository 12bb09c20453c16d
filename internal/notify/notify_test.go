package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPublisher struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (p *stubPublisher) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return p.err
}

func TestVerificationEmail(t *testing.T) {
	msg, err := VerificationEmail("noreply@supportme.dev", "http://localhost:3000/", "a+b@example.com", "tok-1")
	require.NoError(t, err)

	assert.Equal(t, "a+b@example.com", msg.To)
	assert.Equal(t, "Support Me - Verify Email Address", msg.Subject)
	assert.Contains(t, msg.HTML, "Verification Token - tok-1")
	assert.Contains(t, msg.HTML, "http://localhost:3000/user/verify-account?email=a%2Bb%40example.com&amp;verificationToken=tok-1")
}

func TestSendVerification_Publishes(t *testing.T) {
	pub := &stubPublisher{}
	m := NewMailer(pub, "mail", "noreply@supportme.dev", "http://localhost:3000", zap.NewNop())

	require.NoError(t, m.SendVerification(context.Background(), "user@example.com", "tok-2"))

	assert.Equal(t, "mail", pub.exchange)
	assert.Equal(t, RoutingKey, pub.key)
	assert.Equal(t, "application/json", pub.msg.ContentType)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)

	var sent Email
	require.NoError(t, json.Unmarshal(pub.msg.Body, &sent))
	assert.Equal(t, "user@example.com", sent.To)
	assert.Equal(t, "noreply@supportme.dev", sent.From)
	assert.True(t, strings.Contains(sent.HTML, "tok-2"))
}

func TestSendVerification_PublishError(t *testing.T) {
	pub := &stubPublisher{err: errors.New("channel closed")}
	m := NewMailer(pub, "mail", "", "", zap.NewNop())

	err := m.SendVerification(context.Background(), "user@example.com", "tok")
	assert.ErrorContains(t, err, "channel closed")
}

func TestSendVerification_WithoutQueue(t *testing.T) {
	m := NewMailer(nil, "mail", "", "", zap.NewNop())
	assert.NoError(t, m.SendVerification(context.Background(), "user@example.com", "tok"))
}
