// SPDX-License-Identifier: EPL-2.0

package effect

import (
	"fmt"
	"strings"
)

// Kind is the closed set of effects the factory builds.
type Kind int

const (
	Gain Kind = iota + 1
	StereoPan
	Reverb
)

var kindNames = map[Kind]string{
	Gain:      "gain",
	StereoPan: "stereo-pan",
	Reverb:    "reverb",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names printed by Kind.String, case-insensitively,
// plus "pan" and "panner" for StereoPan.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gain", "volume":
		return Gain, nil
	case "stereo-pan", "pan", "panner":
		return StereoPan, nil
	case "reverb":
		return Reverb, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
