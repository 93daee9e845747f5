// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store persists the encoded QoS policy list of each stream in a
// Pebble database.
//
// A value is a CBOR record holding the BLAKE3 fingerprint and the CBOR
// wire form of the list. Unknown record fields are ignored on read.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble"
	"github.com/fxamacker/cbor/v2"

	"code.hybscloud.com/idiom/qos"
)

// ErrNotFound is returned for a stream with no stored policies.
var ErrNotFound = errors.New("store: stream not found")

var keyPrefix = []byte("qos/")

type record struct {
	FP   []byte `cbor:"fp"`
	Wire []byte `cbor:"wire"`
}

// Entry is the stored state of one stream.
type Entry struct {
	Stream      string
	Fingerprint qos.Digest
	Policies    []qos.Policy
}

type options struct {
	log  *slog.Logger
	sync bool
}

// Option configures Open.
type Option func(*options)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithoutSync commits writes without waiting for the WAL fsync.
func WithoutSync() Option {
	return func(o *options) { o.sync = false }
}

// Store is a Pebble-backed policy store. It is safe for concurrent use.
type Store struct {
	db   *pebble.DB
	opts options
}

// Open creates or opens the database in dir.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("store: dir is required")
	}
	o := options{log: slog.New(slog.DiscardHandler), sync: true}
	for _, opt := range opts {
		opt(&o)
	}
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dir, err)
	}
	return &Store{db: db, opts: o}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func key(stream string) []byte {
	return append(append([]byte(nil), keyPrefix...), stream...)
}

func (s *Store) writeOptions() *pebble.WriteOptions {
	if s.opts.sync {
		return pebble.Sync
	}
	return pebble.NoSync
}

// Put stores policies for stream. It reports false, and writes nothing,
// when the stored list already has the same fingerprint.
func (s *Store) Put(stream string, policies []qos.Policy) (changed bool, err error) {
	if stream == "" {
		return false, errors.New("store: empty stream name")
	}
	w, err := qos.Encode(policies)
	if err != nil {
		return false, err
	}
	wire, err := qos.MarshalCBOR(w)
	if err != nil {
		return false, err
	}
	fp, err := qos.Fingerprint(policies)
	if err != nil {
		return false, err
	}
	prev, err := s.load(stream)
	switch {
	case err == nil && bytes.Equal(prev.FP, fp[:]):
		return false, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return false, err
	}
	val, err := cbor.Marshal(record{FP: fp[:], Wire: wire})
	if err != nil {
		return false, fmt.Errorf("store: marshal %q: %w", stream, err)
	}
	if err := s.db.Set(key(stream), val, s.writeOptions()); err != nil {
		return false, fmt.Errorf("store: put %q: %w", stream, err)
	}
	s.opts.log.Debug("qos stored", "stream", stream, "fingerprint", fp.String())
	return true, nil
}

func (s *Store) load(stream string) (record, error) {
	val, closer, err := s.db.Get(key(stream))
	if errors.Is(err, pebble.ErrNotFound) {
		return record{}, fmt.Errorf("%w: %q", ErrNotFound, stream)
	}
	if err != nil {
		return record{}, fmt.Errorf("store: get %q: %w", stream, err)
	}
	defer closer.Close()
	return decodeRecord(stream, val)
}

func decodeRecord(stream string, val []byte) (record, error) {
	var rec record
	if err := cbor.Unmarshal(val, &rec); err != nil {
		return record{}, fmt.Errorf("store: decode %q: %w", stream, err)
	}
	return rec, nil
}

func entryOf(stream string, rec record) (Entry, error) {
	e := Entry{Stream: stream}
	if len(rec.FP) != len(e.Fingerprint) {
		return Entry{}, fmt.Errorf("store: %q: fingerprint of %d bytes", stream, len(rec.FP))
	}
	copy(e.Fingerprint[:], rec.FP)
	policies, err := qos.DecodeCBOR(rec.Wire)
	if err != nil {
		return Entry{}, fmt.Errorf("store: %q: %w", stream, err)
	}
	e.Policies = policies
	return e, nil
}

// Get returns the stored policies of stream.
func (s *Store) Get(stream string) (Entry, error) {
	rec, err := s.load(stream)
	if err != nil {
		return Entry{}, err
	}
	return entryOf(stream, rec)
}

// List returns every stored stream in name order.
func (s *Store) List() ([]Entry, error) {
	hi := append(append([]byte(nil), keyPrefix...), 0xFF)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: hi})
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer func() { _ = it.Close() }()
	var out []Entry
	for ok := it.First(); ok; ok = it.Next() {
		stream := string(it.Key()[len(keyPrefix):])
		rec, err := decodeRecord(stream, it.Value())
		if err != nil {
			return nil, err
		}
		e, err := entryOf(stream, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, it.Error()
}

// Delete removes stream. It returns ErrNotFound when nothing is stored.
func (s *Store) Delete(stream string) error {
	if _, err := s.load(stream); err != nil {
		return err
	}
	if err := s.db.Delete(key(stream), s.writeOptions()); err != nil {
		return fmt.Errorf("store: delete %q: %w", stream, err)
	}
	return nil
}
