package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"smart_office/internal/config"
	"smart_office/internal/logger"
	"smart_office/internal/models"
)

var ErrNotConnected = errors.New("mqtt: not connected")

const defaultPublishTimeout = 3 * time.Second

// Handler processes one inbound message.
type Handler func(ctx context.Context, topic string, payload []byte) error

// Client owns the broker session: it publishes commands and config pushes
// and re-subscribes registered topics after every (re)connect.
type Client struct {
	cli            mqtt.Client
	qos            byte
	publishTimeout time.Duration
	topics         config.TopicsConfig
	log            *logger.Logger

	mu   sync.Mutex
	subs map[string]Handler
}

// Connect starts a session with auto-reconnect. If the broker is not
// reachable within the connect timeout the client is still returned and
// keeps retrying in the background; publishes fail with ErrNotConnected
// until then.
func Connect(cfg config.MQTTConfig, log *logger.Logger) (*Client, error) {
	c := &Client{
		qos:            cfg.QoS,
		publishTimeout: cfg.PublishTimeout,
		topics:         cfg.Topics,
		log:            log,
		subs:           make(map[string]Handler),
	}
	if c.publishTimeout <= 0 {
		c.publishTimeout = defaultPublishTimeout
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID + "-" + uuid.NewString()[:8]).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetOrderMatters(false).
		SetOnConnectHandler(func(mqtt.Client) { c.resubscribe() }).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnw("mqtt_connection_lost", "err", err)
		})
	c.cli = mqtt.NewClient(opts)

	token := c.cli.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		log.Warnw("mqtt_connect_pending", "broker", cfg.Broker, "timeout", cfg.ConnectTimeout)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.Broker, err)
	}
	log.Infow("mqtt_connected", "broker", cfg.Broker)
	return c, nil
}

// newClient wraps an existing paho client; used by tests.
func newClient(cli mqtt.Client, topics config.TopicsConfig, log *logger.Logger) *Client {
	return &Client{
		cli:            cli,
		qos:            1,
		publishTimeout: defaultPublishTimeout,
		topics:         topics,
		log:            log,
		subs:           make(map[string]Handler),
	}
}

// Subscribe registers h for each topic. Registrations survive reconnects.
func (c *Client) Subscribe(h Handler, topics ...string) error {
	c.mu.Lock()
	for _, t := range topics {
		c.subs[t] = h
	}
	c.mu.Unlock()

	if !c.cli.IsConnectionOpen() {
		return nil
	}
	var errs []error
	for _, t := range topics {
		if err := c.subscribe(t, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Client) resubscribe() {
	c.mu.Lock()
	subs := make(map[string]Handler, len(c.subs))
	for t, h := range c.subs {
		subs[t] = h
	}
	c.mu.Unlock()

	for t, h := range subs {
		if err := c.subscribe(t, h); err != nil {
			c.log.Errorw("mqtt_subscribe_failed", "topic", t, "err", err)
		}
	}
	c.log.Infow("mqtt_subscribed", "topics", len(subs))
}

func (c *Client) subscribe(topic string, h Handler) error {
	token := c.cli.Subscribe(topic, c.qos, func(_ mqtt.Client, m mqtt.Message) {
		c.dispatch(h, m)
	})
	if !token.WaitTimeout(c.publishTimeout) {
		return fmt.Errorf("subscribe %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// dispatch runs on paho's callback goroutine; with OrderMatters off each
// message gets its own goroutine.
func (c *Client) dispatch(h Handler, m mqtt.Message) {
	if err := h(context.Background(), m.Topic(), m.Payload()); err != nil {
		c.log.Warnw("mqtt_message_rejected", "topic", m.Topic(), "err", err)
	}
}

// Publish marshals v as JSON and waits for the broker to accept it, bounded
// by ctx and the publish timeout.
func (c *Client) Publish(ctx context.Context, topic string, v any) error {
	if !c.cli.IsConnectionOpen() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", topic, err)
	}

	token := c.cli.Publish(topic, c.qos, false, payload)
	timer := time.NewTimer(c.publishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("publish %s: timed out after %s", topic, c.publishTimeout)
	}
}

// PublishCommand sends a control command to the device command topic.
func (c *Client) PublishCommand(ctx context.Context, cmd models.ControlCommand) error {
	return c.Publish(ctx, c.topics.ControlCmd, cmd)
}

// PushConfig sends a device-facing config change on the config topic.
func (c *Client) PushConfig(ctx context.Context, u models.ConfigUpdate) error {
	return c.Publish(ctx, c.topics.ConfigUpdate, u)
}

func (c *Client) Connected() bool {
	return c.cli.IsConnectionOpen()
}

// Close disconnects, giving in-flight work 250ms to finish.
func (c *Client) Close() {
	c.cli.Disconnect(250)
}
