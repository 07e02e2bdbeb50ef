// SPDX-License-Identifier: EPL-2.0

package playback

import "errors"

var (
	ErrStaleSession = errors.New("session was destroyed and must be recreated")
	ErrNotPlaying   = errors.New("session is not playing")
	ErrInvalidPitch = errors.New("pitch out of range")
	ErrCancelled    = errors.New("automation cancelled by session destroy")
)
