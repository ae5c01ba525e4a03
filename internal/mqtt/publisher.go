package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"darksky-monitor/internal/alert"
	"darksky-monitor/internal/observability"
	"darksky-monitor/internal/service"
)

// client is the subset of the paho client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

type Publisher struct {
	client      client
	topicPrefix string
	enabled     bool
	timeout     time.Duration
	logger      *slog.Logger
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
	Logger      *slog.Logger
}

const publishTimeout = 10 * time.Second

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	if !cfg.Enabled {
		return &Publisher{enabled: false, logger: logger}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Warn("MQTT connection lost", "error", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Info("MQTT connected", "broker", cfg.Broker)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	c := mqtt.NewClient(opts)
	token := c.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return newPublisher(c, cfg.TopicPrefix, logger), nil
}

func newPublisher(c client, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client:      c,
		topicPrefix: prefix,
		enabled:     true,
		timeout:     publishTimeout,
		logger:      logger,
	}
}

// AlertMessage is the JSON payload published for a matched profile.
type AlertMessage struct {
	Owner     string           `json:"owner"`
	Profile   string           `json:"profile"`
	Location  string           `json:"location"`
	Intervals []alert.Interval `json:"intervals"`
	Report    string           `json:"report"`
	SentAt    time.Time        `json:"sent_at"`
}

// AlertTopic is <prefix>/alerts/<owner>/<profile>. Topic separators and
// wildcards inside owner or profile names are replaced with underscores.
func (p *Publisher) AlertTopic(owner, profile string) string {
	return fmt.Sprintf("%s/alerts/%s/%s", p.topicPrefix, topicSegment(owner), topicSegment(profile))
}

var segmentReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

func topicSegment(s string) string {
	return segmentReplacer.Replace(s)
}

// Notify publishes a check result to its owner's alert topic.
func (p *Publisher) Notify(ctx context.Context, r service.CheckResult) error {
	if !p.enabled {
		return nil
	}

	payload, err := json.Marshal(AlertMessage{
		Owner:     r.Owner,
		Profile:   r.Profile,
		Location:  r.Location,
		Intervals: r.Intervals,
		Report:    r.Report,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	topic := p.AlertTopic(r.Owner, r.Profile)
	token := p.client.Publish(topic, 1, false, payload)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	case <-time.After(p.timeout):
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	p.logger.Debug("alert published", "topic", topic)
	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Enabled() bool {
	return p.enabled
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}
