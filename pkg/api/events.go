package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/kubdash/kubdash/pkg/models"
)

// Topics lists the broker topics.
func (c *Client) Topics(ctx context.Context) ([]string, error) {
	var out struct {
		Topics []string `json:"topics"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/kafka/topics", auth: true}, &out); err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return out.Topics, nil
}

// SendMessage publishes message to topic. An empty key publishes without a
// partition key.
func (c *Client) SendMessage(ctx context.Context, topic string, message map[string]any, key string) (*models.SendResult, error) {
	msg := models.Message{Topic: topic, Message: message}
	if key != "" {
		msg.Key = &key
	}

	var res models.SendResult
	if err := c.do(ctx, request{method: http.MethodPost, path: "/kafka/send", body: msg, auth: true}, &res); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &res, nil
}

// Health checks the broker. It never fails; errors are reported in the
// returned status.
func (c *Client) Health(ctx context.Context) models.Health {
	var h models.Health
	if err := c.do(ctx, request{method: http.MethodGet, path: "/kafka/healthcheck"}, &h); err != nil {
		c.log.WithError(err).Warn("broker health check failed")
		return models.Health{Status: "unhealthy", Error: err.Error()}
	}
	return h
}

// SendTestMessage asks the backend to publish a canned message.
func (c *Client) SendTestMessage(ctx context.Context, topic, message string) (*models.SendResult, error) {
	if topic == "" {
		topic = "test-topic"
	}
	if message == "" {
		message = "Hello from kubdash"
	}

	var res models.SendResult
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/kafka/test-producer",
		query:  url.Values{"topic": {topic}, "message": {message}},
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("send test message: %w", err)
	}
	return &res, nil
}

// Events fetches pending backend notifications.
func (c *Client) Events(ctx context.Context) ([]models.Event, error) {
	var out struct {
		Events []models.Event `json:"events"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/kafka/events"}, &out); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	return out.Events, nil
}
