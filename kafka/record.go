// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package kafka

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"code.hybscloud.com/idiom/entity"
)

// Record headers written by this package.
const (
	HeaderType   = "idiom-type"
	HeaderWriter = "idiom-writer"
	HeaderSeq    = "idiom-seq"
)

const flushTimeout = 5 * time.Second

// newRecord builds the Kafka record of one sample. data is copied.
func newRecord(kname, typeName string, writer uuid.UUID, seq uint64, data []byte) *kgo.Record {
	var seqb [8]byte
	binary.BigEndian.PutUint64(seqb[:], seq)
	return &kgo.Record{
		Topic: kname,
		Value: append([]byte(nil), data...),
		Headers: []kgo.RecordHeader{
			{Key: HeaderType, Value: []byte(typeName)},
			{Key: HeaderWriter, Value: writer[:]},
			{Key: HeaderSeq, Value: seqb[:]},
		},
		Timestamp: time.Now(),
	}
}

func header(rec *kgo.Record, key string) ([]byte, bool) {
	for _, h := range rec.Headers {
		if h.Key == key {
			return h.Value, true
		}
	}
	return nil, false
}

// sampleOf converts rec. It reports false when rec carries a type header
// other than typeName. Records from foreign producers, which carry no
// headers, are accepted with the partition offset as sequence number.
func sampleOf(rec *kgo.Record, typeName string) (entity.Sample, bool) {
	if t, ok := header(rec, HeaderType); ok && string(t) != typeName {
		return entity.Sample{}, false
	}
	info := entity.SampleInfo{
		Sequence:        uint64(rec.Offset) + 1,
		SourceTimestamp: rec.Timestamp,
	}
	if b, ok := header(rec, HeaderSeq); ok && len(b) == 8 {
		info.Sequence = binary.BigEndian.Uint64(b)
	}
	if b, ok := header(rec, HeaderWriter); ok {
		if id, err := uuid.FromBytes(b); err == nil {
			info.WriterGUID = id
		}
	}
	return entity.Sample{Data: rec.Value, Info: info}, true
}
