// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package runtime wires a transport, a participant and the policy store
// from configuration.
package runtime

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"code.hybscloud.com/idiom"
	"code.hybscloud.com/idiom/entity"
	"code.hybscloud.com/idiom/internal/config"
	"code.hybscloud.com/idiom/internal/store"
	"code.hybscloud.com/idiom/kafka"
	"code.hybscloud.com/idiom/loopback"
	"code.hybscloud.com/idiom/qos"
	"code.hybscloud.com/idiom/rabbitmq"
)

// Options for building the Runtime.
type Options struct {
	Config config.Config
	Logger *slog.Logger
}

// Runtime holds the participant of the configured domain and, once
// opened, the policy store.
type Runtime struct {
	cfg         config.Config
	log         *slog.Logger
	transport   entity.Runtime
	participant *idiom.Participant

	mu    sync.Mutex
	store *store.Store
}

// Open selects the transport named by the configuration. No connection
// is made until a session first needs an entity.
func Open(opts Options) (*Runtime, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	tr, err := Transport(opts.Config, log)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		cfg:         opts.Config,
		log:         log,
		transport:   tr,
		participant: idiom.NewParticipant(tr, opts.Config.Domain, idiom.WithLogger(log)),
	}, nil
}

// Transport builds the entity runtime named by cfg.Runtime.
func Transport(cfg config.Config, log *slog.Logger) (entity.Runtime, error) {
	switch cfg.Runtime {
	case config.RuntimeLoopback, "":
		return loopback.New(
			loopback.WithQueueCapacity(cfg.Loopback.QueueCapacity),
			loopback.WithLogger(log),
		), nil
	case config.RuntimeKafka:
		return kafka.New(kafka.Config{
			Brokers:     cfg.Kafka.Brokers,
			TopicPrefix: cfg.Kafka.TopicPrefix,
			ClientID:    cfg.Kafka.ClientID,
		}, kafka.WithLogger(log))
	case config.RuntimeRabbitMQ:
		return rabbitmq.New(rabbitmq.Config{
			URL:            cfg.RabbitMQ.URL,
			ExchangePrefix: cfg.RabbitMQ.ExchangePrefix,
		}, rabbitmq.WithLogger(log))
	}
	return nil, fmt.Errorf("unsupported runtime %q", cfg.Runtime)
}

// NewLogger builds the handler selected by c.
func NewLogger(w io.Writer, c config.LogConfig) (*slog.Logger, error) {
	lvl, err := c.ParseLevel()
	if err != nil {
		return nil, err
	}
	hopts := &slog.HandlerOptions{Level: lvl}
	switch c.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	}
	return nil, fmt.Errorf("unsupported log.format %q", c.Format)
}

// Config returns the configuration the runtime was opened with.
func (r *Runtime) Config() config.Config { return r.cfg }

// Transport returns the selected entity runtime.
func (r *Runtime) Transport() entity.Runtime { return r.transport }

// Participant returns the participant of the configured domain.
func (r *Runtime) Participant() *idiom.Participant { return r.participant }

// Store opens the policy store on first call.
func (r *Runtime) Store() (*store.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		return r.store, nil
	}
	s, err := store.Open(r.cfg.Store.Dir, store.WithLogger(r.log))
	if err != nil {
		return nil, err
	}
	r.store = s
	return s, nil
}

// Persist derives the policy table of every configured stream and stores
// each role under "<stream>/topic", "<stream>/reader" and
// "<stream>/writer". It returns the keys whose stored policies changed.
func (r *Runtime) Persist() ([]string, error) {
	s, err := r.Store()
	if err != nil {
		return nil, err
	}
	var changed []string
	for _, st := range r.cfg.Streams {
		sc, err := st.Session()
		if err != nil {
			return changed, fmt.Errorf("stream %q: %w", st.Name, err)
		}
		sess, err := idiom.New[[]byte](r.participant, sc, idiom.WithCodec[[]byte](idiom.Bytes{}))
		if err != nil {
			return changed, err
		}
		table := sess.Qos()
		for _, role := range []struct {
			name string
			set  qos.Set
		}{{"topic", table.Topic}, {"reader", table.Reader}, {"writer", table.Writer}} {
			key := st.Name + "/" + role.name
			ok, err := s.Put(key, role.set)
			if err != nil {
				return changed, fmt.Errorf("stream %q: %w", key, err)
			}
			if ok {
				changed = append(changed, key)
			}
		}
	}
	return changed, nil
}

// Close closes the participant and the store.
func (r *Runtime) Close() error {
	var errs []error
	if err := r.participant.Close(); err != nil {
		errs = append(errs, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, err)
		}
		r.store = nil
	}
	return errors.Join(errs...)
}
