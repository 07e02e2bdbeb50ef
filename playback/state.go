// SPDX-License-Identifier: EPL-2.0

package playback

import "fmt"

type State int

const (
	Idle State = iota
	Playing
	Paused
	Stopped
	Destroyed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}
