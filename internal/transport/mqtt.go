package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/scene-analytics/internal/metrics"
	"github.com/banshee-data/scene-analytics/internal/monitoring"
)

// ErrNotConnected is returned by Publish when the adapter is disconnected.
// Publishes never queue silently — the caller sees this error immediately
// and decides whether to drop or retry.
var ErrNotConnected = errors.New("transport: not connected")

// Credentials carries optional authentication material injected at
// construction: a username/password pair or a client certificate pair.
type Credentials struct {
	Username string
	Password string
	CertFile string
	KeyFile  string
	CAFile   string
}

// Handler is invoked for every message on a matching subscription. It must
// not block on network I/O: callbacks run on the client's own goroutine.
type Handler func(topic string, bindings map[string]string, payload []byte)

type subscription struct {
	template string
	handler  Handler
}

// Adapter is the publish/subscribe transport. One Adapter serves one MQTT
// connection; subscriptions are reissued automatically on reconnect.
type Adapter struct {
	clientID string
	client   mqtt.Client

	mu   sync.RWMutex
	subs []subscription
}

// NewAdapter constructs an Adapter for the given broker URL
// (e.g. "tcp://broker:1883" or "ssl://broker:8883") and client id.
// Connect must be called before Publish/Subscribe take effect.
func NewAdapter(brokerURL, clientID string, creds Credentials) *Adapter {
	a := &Adapter{clientID: clientID}

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(30 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			a.resubscribeAll()
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			metrics.TransportErrors.WithLabelValues("connection_lost").Inc()
			monitoring.Logf("transport: connection lost: %v", err)
		})

	if creds.Username != "" {
		opts.SetUsername(creds.Username)
		opts.SetPassword(creds.Password)
	}
	if creds.CertFile != "" && creds.KeyFile != "" {
		tlsCfg, err := newTLSConfig(creds)
		if err != nil {
			monitoring.Logf("transport: tls config error: %v", err)
		} else {
			opts.SetTLSConfig(tlsCfg)
		}
	}

	a.client = mqtt.NewClient(opts)
	return a
}

// Connect establishes the MQTT connection. Reconnect after the initial
// connection is automatic.
func (a *Adapter) Connect() error {
	token := a.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		metrics.TransportErrors.WithLabelValues("connect").Inc()
		return fmt.Errorf("transport: connect: %w", err)
	}
	return nil
}

// Subscribe registers a handler for every topic matching template.
// The subscription survives reconnect: it is reissued automatically.
func (a *Adapter) Subscribe(template string, qos byte, handler Handler) error {
	a.mu.Lock()
	a.subs = append(a.subs, subscription{template: template, handler: handler})
	a.mu.Unlock()

	return a.subscribeOne(template, qos, handler)
}

func (a *Adapter) subscribeOne(template string, qos byte, handler Handler) error {
	filter := SubscriptionFilter(template)
	token := a.client.Subscribe(filter, qos, func(c mqtt.Client, msg mqtt.Message) {
		bindings, ok := ParseTopic(template, msg.Topic())
		if !ok {
			return
		}
		handler(msg.Topic(), bindings, msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		metrics.TransportErrors.WithLabelValues("subscribe").Inc()
		return fmt.Errorf("transport: subscribe %s: %w", filter, err)
	}
	return nil
}

func (a *Adapter) resubscribeAll() {
	a.mu.RLock()
	subs := append([]subscription{}, a.subs...)
	a.mu.RUnlock()
	for _, s := range subs {
		if err := a.subscribeOne(s.template, 0, s.handler); err != nil {
			monitoring.Logf("transport: resubscribe %s failed: %v", s.template, err)
		}
	}
}

// Publish sends payload on topic. If the adapter is currently disconnected
// the publish fails immediately with ErrNotConnected — there is no local
// queueing.
func (a *Adapter) Publish(topic string, qos byte, payload []byte) error {
	if !a.client.IsConnected() {
		metrics.TransportErrors.WithLabelValues("publish").Inc()
		return ErrNotConnected
	}
	token := a.client.Publish(topic, qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		metrics.TransportErrors.WithLabelValues("publish").Inc()
		return fmt.Errorf("transport: publish %s: %w", topic, err)
	}
	return nil
}

// Disconnect tears down the connection, waiting up to quiesce for
// in-flight work to finish.
func (a *Adapter) Disconnect(quiesce time.Duration) {
	a.client.Disconnect(uint(quiesce.Milliseconds()))
}
