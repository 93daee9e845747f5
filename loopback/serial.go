// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package loopback

import "code.hybscloud.com/atomix"

// Serial is a monotonically increasing entity identifier.
// Every participant, topic, reader and writer takes the next value.
type Serial = uint32

// counter is the process-wide monotonic counter for entity serials.
var counter atomix.Uint32

// nextSerial returns the next monotonically increasing serial.
func nextSerial() Serial {
	return counter.Add(1)
}
