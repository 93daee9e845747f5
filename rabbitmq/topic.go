// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rabbitmq

import (
	"code.hybscloud.com/atomix"
	"github.com/google/uuid"

	"code.hybscloud.com/idiom/qos"
)

type topic struct {
	guid     uuid.UUID
	f        *factory
	name     string
	typeName string
	exchange string
	q        qos.Set
	disposed atomix.Uint32
}

func (t *topic) GUID() uuid.UUID  { return t.guid }
func (t *topic) Name() string     { return t.name }
func (t *topic) TypeName() string { return t.typeName }
func (t *topic) Qos() qos.Set     { return t.q }

// Exchange returns the exchange name.
func (t *topic) Exchange() string { return t.exchange }

// Dispose releases the handle. The exchange stays declared on the broker.
func (t *topic) Dispose() error {
	if t.disposed.Add(1) != 1 {
		return nil
	}
	t.f.release(t)
	return nil
}
