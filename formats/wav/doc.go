// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and writes RIFF/WAVE files.
//
// Decoding goes through github.com/go-audio/wav and accepts integer PCM at
// 8, 16, 24 and 32 bits with any channel count. The writers emit canonical
// 16-bit PCM, which is what RenderToMono16 output and test fixtures use.
package wav
