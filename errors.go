// SPDX-License-Identifier: EPL-2.0

package audplay

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrEngineClosed  = errors.New("engine closed")
)
