// SPDX-License-Identifier: EPL-2.0

package assets

import (
	"errors"
	"fmt"
)

var (
	ErrDestroyed            = errors.New("asset manager was destroyed")
	ErrStreamingUnsupported = errors.New("backend cannot stream")
)

// LoadError reports an asset that could not be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
