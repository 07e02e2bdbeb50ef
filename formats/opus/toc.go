// SPDX-License-Identifier: EPL-2.0

package opus

import "errors"

var ErrEmptyPacket = errors.New("empty opus packet")

// frameSamples is the per-frame length at 48 kHz for each TOC config,
// grouped by mode: SILK 0-11, hybrid 12-15, CELT 16-31.
func frameSamples(config byte) int {
	switch {
	case config < 12:
		return [...]int{480, 960, 1920, 2880}[config%4]
	case config < 16:
		return [...]int{480, 960}[config%2]
	default:
		return [...]int{120, 240, 480, 960}[config%4]
	}
}

// packetSamples returns how many 48 kHz samples per channel a packet decodes to.
func packetSamples(packet []byte) (int, error) {
	if len(packet) == 0 {
		return 0, ErrEmptyPacket
	}

	toc := packet[0]
	frames := 1
	switch toc & 0x3 {
	case 1, 2:
		frames = 2
	case 3:
		if len(packet) < 2 {
			return 0, ErrEmptyPacket
		}
		frames = int(packet[1] & 0x3F)
	}

	return frames * frameSamples(toc>>3), nil
}
