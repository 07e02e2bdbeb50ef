// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize    = errors.New("dst size must be multiple of channels")
	ErrInvalidChannels   = errors.New("source has no channels")
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	ErrChannelLength     = errors.New("channels differ in length")
	ErrEmptySource       = errors.New("source produced no samples")
)
