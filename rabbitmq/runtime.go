// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rabbitmq is an [entity.Runtime] backed by RabbitMQ through
// amqp091-go.
//
// A topic named n in domain d maps to the fanout exchange
// "<prefix>.<d>.<n>", durable when the topic asks for Transient or
// Persistent durability. Every reader binds its own exclusive,
// auto-deleted queue. Reliable writers publish in confirm mode and wait
// for the broker's confirmation within their max blocking time;
// Persistent writers mark messages persistent.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"code.hybscloud.com/idiom/entity"
)

// DefaultExchangePrefix is used when Config.ExchangePrefix is empty.
const DefaultExchangePrefix = "idiom"

// Config selects the broker.
type Config struct {
	URL            string
	ExchangePrefix string
}

// Validate reports a config that cannot reach a broker.
func (c Config) Validate() error {
	raw := strings.TrimSpace(c.URL)
	if raw == "" {
		return errors.New("rabbitmq.url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("rabbitmq.url: %w", err)
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return fmt.Errorf("rabbitmq.url scheme %q, want amqp or amqps", u.Scheme)
	}
	return nil
}

// ExchangeName returns the exchange carrying name in domain.
func ExchangeName(prefix string, domain int, name string) string {
	if prefix == "" {
		prefix = DefaultExchangePrefix
	}
	return prefix + "." + strconv.Itoa(domain) + "." + name
}

type options struct {
	log  *slog.Logger
	dial func(url string) (*amqp.Connection, error)
}

// Option configures a Runtime.
type Option func(*options)

// WithLogger sets the runtime logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithDialConfig dials with cfg instead of the defaults, for TLS or
// custom authentication.
func WithDialConfig(cfg amqp.Config) Option {
	return func(o *options) {
		o.dial = func(url string) (*amqp.Connection, error) { return amqp.DialConfig(url, cfg) }
	}
}

// Runtime creates RabbitMQ-backed participants.
type Runtime struct {
	cfg  Config
	opts options
}

// New validates cfg. No connection is made until a participant is
// created.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ExchangePrefix == "" {
		cfg.ExchangePrefix = DefaultExchangePrefix
	}
	o := options{log: slog.New(slog.DiscardHandler), dial: amqp.Dial}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runtime{cfg: cfg, opts: o}, nil
}

// Config returns the effective configuration.
func (rt *Runtime) Config() Config { return rt.cfg }

// CreateParticipant opens one connection for the participant.
func (rt *Runtime) CreateParticipant(ctx context.Context, domain int) (entity.Factory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := rt.opts.dial(strings.TrimSpace(rt.cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	rt.opts.log.Info("rabbitmq participant created", "domain", domain)
	return newFactory(rt, domain, conn), nil
}
