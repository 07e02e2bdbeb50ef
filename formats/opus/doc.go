// SPDX-License-Identifier: EPL-2.0

// Package opus decodes Ogg-encapsulated Opus through github.com/pion/opus.
//
// The Ogg layer is read here: pages are split into packets, the OpusHead
// pre-skip is honoured and each audio packet is handed to the pion decoder.
// pion/opus only implements SILK, so output is mono at 48 kHz and CELT or
// hybrid packets fail with the decoder's error.
package opus
