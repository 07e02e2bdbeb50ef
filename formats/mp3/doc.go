// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III through github.com/hajimehoshi/go-mp3.
//
// Output is always stereo: go-mp3 duplicates mono streams into both channels.
package mp3
