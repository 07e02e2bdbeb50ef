// SPDX-License-Identifier: EPL-2.0

package backend

import (
	"errors"
	"fmt"
)

var ErrNoDecoder = errors.New("no decoder for file")

// DecodeError ties a decode failure to the file that caused it.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
