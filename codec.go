// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package idiom

import "github.com/fxamacker/cbor/v2"

// Codec converts sample values to and from transport payloads.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// CBOR is the default Codec. Struct fields use their `cbor` tags, then
// their `json` tags.
type CBOR[T any] struct{}

func (CBOR[T]) Marshal(v T) ([]byte, error) { return cbor.Marshal(v) }

func (CBOR[T]) Unmarshal(data []byte) (T, error) {
	var v T
	err := cbor.Unmarshal(data, &v)
	return v, err
}

// Bytes passes payloads through unchanged.
type Bytes struct{}

func (Bytes) Marshal(v []byte) ([]byte, error) { return v, nil }

func (Bytes) Unmarshal(data []byte) ([]byte, error) { return data, nil }
