// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rabbitmq

import (
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"code.hybscloud.com/idiom/entity"
)

// Message headers written by this package.
const (
	HeaderType   = "idiom-type"
	HeaderWriter = "idiom-writer"
	HeaderSeq    = "idiom-seq"
)

// newPublishing builds the message of one sample. data is copied.
func newPublishing(typeName string, writer uuid.UUID, seq uint64, data []byte, persistent bool) amqp.Publishing {
	mode := amqp.Transient
	if persistent {
		mode = amqp.Persistent
	}
	return amqp.Publishing{
		Headers: amqp.Table{
			HeaderType:   typeName,
			HeaderWriter: writer.String(),
			HeaderSeq:    int64(seq),
		},
		ContentType:  "application/octet-stream",
		DeliveryMode: mode,
		Timestamp:    time.Now(),
		Type:         typeName,
		Body:         append([]byte(nil), data...),
	}
}

// sampleOf converts d. It reports false when d carries a type header
// other than typeName; messages without one are accepted.
func sampleOf(d amqp.Delivery, typeName string) (entity.Sample, bool) {
	if t, ok := d.Headers[HeaderType].(string); ok && t != typeName {
		return entity.Sample{}, false
	}
	info := entity.SampleInfo{SourceTimestamp: d.Timestamp}
	switch seq := d.Headers[HeaderSeq].(type) {
	case int64:
		info.Sequence = uint64(seq)
	case int32:
		info.Sequence = uint64(seq)
	default:
		info.Sequence = d.DeliveryTag
	}
	if s, ok := d.Headers[HeaderWriter].(string); ok {
		if id, err := uuid.Parse(s); err == nil {
			info.WriterGUID = id
		}
	}
	return entity.Sample{Data: d.Body, Info: info}, true
}
