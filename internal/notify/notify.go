// Package notify отправляет пользователям письма через очередь RabbitMQ.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RoutingKey задаёт ключ маршрутизации писем в обменнике.
const RoutingKey = "email"

// Email содержит письмо, которое воркер рассылки отправляет по SMTP.
type Email struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

var verificationTemplate = template.Must(template.New("verify").Parse(`<div>
    <p>To verify your account click the link below</p>
    <p>Email - {{.Email}}</p>
    <p>Verification Token - {{.Token}}</p>
    <a style="text-decoration: underline; cursor: pointer;" href="{{.Link}}" target="_blank">Click Me</a>
</div>`))

// VerificationEmail формирует письмо с токеном подтверждения email.
func VerificationEmail(from, baseURL, email, token string) (Email, error) {
	q := url.Values{}
	q.Set("email", email)
	q.Set("verificationToken", token)
	link := strings.TrimRight(baseURL, "/") + "/user/verify-account?" + q.Encode()

	var buf bytes.Buffer
	err := verificationTemplate.Execute(&buf, struct {
		Email, Token, Link string
	}{email, token, link})
	if err != nil {
		return Email{}, fmt.Errorf("render verification email: %w", err)
	}

	return Email{
		To:      email,
		From:    from,
		Subject: "Support Me - Verify Email Address",
		HTML:    buf.String(),
	}, nil
}

// Publisher покрывает часть amqp.Channel, которая нужна для отправки.
type Publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Mailer публикует письма в обменник RabbitMQ.
type Mailer struct {
	ch       Publisher
	exchange string
	from     string
	baseURL  string
	logger   *zap.Logger
}

// NewMailer создаёт Mailer. При ch == nil письма только пишутся в лог.
func NewMailer(ch Publisher, exchange, from, baseURL string, logger *zap.Logger) *Mailer {
	return &Mailer{
		ch:       ch,
		exchange: exchange,
		from:     from,
		baseURL:  baseURL,
		logger:   logger,
	}
}

// SendVerification отправляет письмо со ссылкой подтверждения email.
func (m *Mailer) SendVerification(ctx context.Context, email, token string) error {
	msg, err := VerificationEmail(m.from, m.baseURL, email, token)
	if err != nil {
		return err
	}

	if m.ch == nil {
		m.logger.Info("mail queue is not configured, email not sent",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
		)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	err = m.ch.Publish(m.exchange, RoutingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	})
	if err != nil {
		return fmt.Errorf("publish email: %w", err)
	}

	m.logger.Info("verification email queued", zap.String("to", msg.To))
	return nil
}

// Connect подключается к RabbitMQ, повторяя попытки retries раз.
func Connect(ctx context.Context, rawURL string, retries int, delay time.Duration) (*amqp.Connection, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	if retries < 1 {
		retries = 1
	}

	for i := 0; i < retries; i++ {
		conn, err = amqp.Dial(rawURL)
		if err == nil {
			return conn, nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, fmt.Errorf("connect rabbitmq: %w", err)
}

// SetupChannel открывает канал и объявляет обменник и очередь писем.
func SetupChannel(conn *amqp.Connection, exchange string) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	queue := exchange + "." + RoutingKey
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.QueueBind(queue, RoutingKey, exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind queue %s: %w", queue, err)
	}

	return ch, nil
}
