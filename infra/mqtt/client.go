package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/pa/core/mqtt"
	coremon "github.com/kilianp07/pa/core/monitoring"
	"github.com/kilianp07/pa/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string          `json:"broker"`
	ClientID   string          `json:"client_id"`
	Username   string          `json:"username"`
	Password   string          `json:"password"`
	TopicRoot  string          `json:"topic_root"`
	UseTLS     bool            `json:"use_tls"`
	ClientCert string          `json:"client_cert"`
	ClientKey  string          `json:"client_key"`
	CABundle   string          `json:"ca_bundle"`
	AuthMethod string          `json:"auth_method"`
	QoS        map[string]byte `json:"qos"`
	LWTTopic   string          `json:"lwt_topic"`
	LWTPayload string          `json:"lwt_payload"`
	LWTQoS     byte            `json:"lwt_qos"`
	LWTRetain  bool            `json:"lwt_retain"`
	MaxRetries int             `json:"max_retries"`
	BackoffMS  int             `json:"backoff_ms"`
	TLSConfig  *tls.Config     `json:"-"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.TopicRoot == "" {
		c.TopicRoot = "SolarD"
	}
	if c.ClientID == "" {
		c.ClientID = "pa-" + uuid.NewString()[:8]
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS == 0 {
		c.BackoffMS = 100
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	switch c.AuthMethod {
	case "", "username_password", "certificate", "both":
	default:
		return fmt.Errorf("mqtt.auth_method %q not supported", c.AuthMethod)
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Handler receives the payload of a subscribed topic.
type Handler func(topic string, payload []byte)

// PahoClient publishes, subscribes and performs request/reply calls over
// Eclipse Paho.
type PahoClient struct {
	cli      pahoClient
	root     string
	clientID string
	qos      map[string]byte

	mu         sync.Mutex
	subs       map[string]Handler
	pending    map[string]chan coremqtt.Reply
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the reply topic.
// Subscriptions are restored on every reconnect.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		root:       cfg.TopicRoot,
		clientID:   cfg.ClientID,
		qos:        cfg.QoS,
		subs:       make(map[string]Handler),
		pending:    make(map[string]chan coremqtt.Reply),
		logger:     log,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	pc.subs[pc.ReplyTopic()] = pc.onReply

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		pc.mu.Lock()
		subs := make(map[string]Handler, len(pc.subs))
		for t, h := range pc.subs {
			subs[t] = h
		}
		pc.mu.Unlock()
		for topic, h := range subs {
			if token := c.Subscribe(topic, pc.qosFor("subscribe"), wrap(h)); token.Wait() && token.Error() != nil {
				log.Errorf("subscribe %s error: %v", topic, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	pc.cli = c
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("%w: %v", coremqtt.ErrTransport, token.Error())
	}
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

func wrap(h Handler) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) { h(msg.Topic(), msg.Payload()) }
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

// Root returns the configured topic root.
func (p *PahoClient) Root() string { return p.root }

// ReplyTopic returns the topic on which this client receives replies.
func (p *PahoClient) ReplyTopic() string { return coremqtt.ReplyTopic(p.root, p.clientID) }

// Subscribe registers h for topic. The subscription survives reconnects.
func (p *PahoClient) Subscribe(topic string, h Handler) error {
	p.mu.Lock()
	p.subs[topic] = h
	p.mu.Unlock()
	token := p.cli.Subscribe(topic, p.qosFor("subscribe"), wrap(h))
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: subscribe %s: %v", coremqtt.ErrTransport, topic, err)
	}
	return nil
}

// Publish sends payload with a bounded exponential backoff.
func (p *PahoClient) Publish(topic string, retained bool, payload []byte) error {
	maxRetries := p.maxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := p.backoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}
	var publishErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qosFor("publish"), retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < maxRetries {
			time.Sleep(backoff * time.Duration(1<<attempt))
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"topic": topic, "module": "mqtt"})
	return fmt.Errorf("%w: %v", coremqtt.ErrTransport, publishErr)
}

// PublishJSON marshals v and publishes it.
func (p *PahoClient) PublishJSON(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(topic, retained, payload)
}

// Call publishes req to the agent request topic and waits for the reply with
// the same id, or until ctx is done.
func (p *PahoClient) Call(ctx context.Context, agent string, req coremqtt.Request) (coremqtt.Reply, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	req.ReplyTo = p.ReplyTopic()
	ch := make(chan coremqtt.Reply, 1)
	p.mu.Lock()
	p.pending[req.ID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, req.ID)
		p.mu.Unlock()
	}()

	if err := p.PublishJSON(coremqtt.RequestTopic(p.root, agent), false, req); err != nil {
		return coremqtt.Reply{}, err
	}
	p.logger.Debugf("sent %s request %s to %s", req.Func, req.ID, agent)
	select {
	case rep := <-ch:
		return rep, nil
	case <-ctx.Done():
		return coremqtt.Reply{}, fmt.Errorf("%w: %s %s: %v", coremqtt.ErrReplyTimeout, agent, req.Func, ctx.Err())
	}
}

func (p *PahoClient) onReply(_ string, payload []byte) {
	var rep coremqtt.Reply
	if err := json.Unmarshal(payload, &rep); err != nil {
		p.logger.Errorf("failed to decode reply: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.pending[rep.ID]
	p.mu.Unlock()
	if !ok {
		p.logger.Debugf("dropping reply %s: no pending call", rep.ID)
		return
	}
	select {
	case ch <- rep:
	default:
	}
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
