// Package notify publishes applied trip transitions to external listeners
// over MQTT. The notifier is best-effort: a failed publish is logged by the
// engine and never rolls back the transition it reports.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/fleetops/dispatchd/core/engine"
	"github.com/fleetops/dispatchd/infra/logger"
)

// Config holds MQTT notifier settings.
type Config struct {
	Enabled     bool   `json:"enabled"`
	Broker      string `json:"broker"`
	ClientID    string `json:"client_id"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	TopicPrefix string `json:"topic_prefix"`
	QoS         byte   `json:"qos"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "dispatchd"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "fleet"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Enabled && c.Broker == "" {
		return fmt.Errorf("notify: broker is required when enabled")
	}
	return nil
}

// PahoNotifier publishes transition events using Eclipse Paho.
type PahoNotifier struct {
	cli    paho.Client
	prefix string
	qos    byte
	log    logger.Logger
}

// NewPahoNotifier connects to the MQTT broker.
func NewPahoNotifier(cfg Config) (*PahoNotifier, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logg := logger.New("notify")
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(paho.Client) {
		logg.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logg.Errorf("connection lost: %v", err)
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &PahoNotifier{cli: cli, prefix: cfg.TopicPrefix, qos: cfg.QoS, log: logg}, nil
}

// TripTransition publishes the event to <prefix>/trips/<id>/state.
func (n *PahoNotifier) TripTransition(ctx context.Context, ev engine.TransitionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/trips/%s/state", n.prefix, ev.TripID)
	token := n.cli.Publish(topic, n.qos, false, payload)
	timeout := 5 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (n *PahoNotifier) Close() error {
	n.cli.Disconnect(250)
	return nil
}
