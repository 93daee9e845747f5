// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package qos

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest identifies the wire form of a policy list.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Fingerprint hashes the deterministic CBOR wire form of policies.
// Lists that encode to the same records share a fingerprint, so kinds
// without a wire body do not contribute.
func Fingerprint(policies []Policy) (Digest, error) {
	data, err := EncodeCBOR(policies)
	if err != nil {
		return Digest{}, err
	}
	return blake3.Sum256(data), nil
}
