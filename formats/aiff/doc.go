// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF files through github.com/go-audio/aiff.
//
// Uncompressed integer PCM at 8, 16, 24 and 32 bits is accepted, any channel
// count, any sample rate. Samples come out as float32 in [-1, 1].
package aiff
