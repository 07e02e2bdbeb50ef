// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownKind  = errors.New("unknown effect kind")
	ErrInvalidStep  = errors.New("sweep step must be positive")
	ErrTooManySteps = errors.New("sweep has too many steps")
	ErrCancelled    = errors.New("effect automation cancelled")
	ErrDisconnected = errors.New("effect is not connected")
	ErrNoDecoder    = errors.New("effect factory has no decoder")
)

// ImpulseError reports a reverb impulse response that could not be loaded.
type ImpulseError struct {
	Path string
	Err  error
}

func (e *ImpulseError) Error() string {
	return fmt.Sprintf("impulse response %s: %v", e.Path, e.Err)
}

func (e *ImpulseError) Unwrap() error { return e.Err }
