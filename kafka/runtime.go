// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package kafka is an [entity.Runtime] backed by Kafka through franz-go.
//
// A topic named n in domain d maps to the Kafka topic
// "<prefix>.<d>.<n>". Every participant owns one producer client; every
// reader owns a direct consumer (no consumer group) that starts at the
// earliest offset for non-volatile durability and at the latest offset
// otherwise. Reliable writers produce synchronously within their max
// blocking time; best-effort writers produce asynchronously.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"code.hybscloud.com/atomix"
	"github.com/twmb/franz-go/pkg/kgo"

	"code.hybscloud.com/idiom/entity"
)

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "idiom"

// Config selects the cluster.
type Config struct {
	Brokers     []string
	TopicPrefix string
	ClientID    string
}

func (c *Config) withDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.ClientID == "" {
		c.ClientID = "idiom"
	}
}

// Validate reports a config that cannot reach a cluster.
func (c Config) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka.brokers is required")
	}
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) == "" {
			return errors.New("kafka.brokers contains an empty address")
		}
	}
	if strings.ContainsAny(c.TopicPrefix, "/\\ ") {
		return fmt.Errorf("kafka.topic_prefix %q is not a valid topic name", c.TopicPrefix)
	}
	return nil
}

// TopicName returns the Kafka topic carrying name in domain.
func TopicName(prefix string, domain int, name string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "." + strconv.Itoa(domain) + "." + name
}

type options struct {
	log  *slog.Logger
	kopt []kgo.Opt
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

// WithClientOpts appends franz-go options to every client the runtime
// creates.
func WithClientOpts(opts ...kgo.Opt) Option {
	return func(o *options) { o.kopt = append(o.kopt, opts...) }
}

// Runtime creates Kafka-backed participants.
type Runtime struct {
	cfg  Config
	opts options

	// Dropped counts best-effort records the cluster rejected.
	dropped atomix.Uint32
}

// New validates cfg. No connection is made until a participant is
// created.
func New(cfg Config, opts ...Option) (*Runtime, error) {
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return &Runtime{cfg: cfg, opts: o}, nil
}

// Config returns the effective configuration.
func (rt *Runtime) Config() Config { return rt.cfg }

// Dropped returns the number of best-effort records that failed.
func (rt *Runtime) Dropped() uint32 { return rt.dropped.Load() }

// clientOpts returns the base options shared by producers and consumers.
func (rt *Runtime) clientOpts(extra ...kgo.Opt) []kgo.Opt {
	kopts := []kgo.Opt{
		kgo.SeedBrokers(rt.cfg.Brokers...),
		kgo.ClientID(rt.cfg.ClientID),
	}
	kopts = append(kopts, rt.opts.kopt...)
	return append(kopts, extra...)
}

// CreateParticipant opens the participant's producer client.
func (rt *Runtime) CreateParticipant(ctx context.Context, domain int) (entity.Factory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cl, err := kgo.NewClient(rt.clientOpts(kgo.AllowAutoTopicCreation())...)
	if err != nil {
		return nil, fmt.Errorf("new kafka client: %w", err)
	}
	rt.opts.log.Info("kafka participant created", "domain", domain, "brokers", rt.cfg.Brokers)
	return newFactory(rt, domain, cl), nil
}
