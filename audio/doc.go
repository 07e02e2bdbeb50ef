// SPDX-License-Identifier: EPL-2.0

// Package audio holds the PCM primitives the rest of audplay is built on.
//
// # Sources
//
// A Source is a progressive stream of interleaved float32 samples in
// [-1, 1], as produced by a codec:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// ReadSamples returns io.EOF once the stream is exhausted. Processors such
// as Resampler and MonoMixer wrap a Source and are Sources themselves, so
// they chain:
//
//	src, _ := wav.Decoder{}.Decode(f)
//	src = audio.NewResampler(src, 48000)
//
// # Buffers
//
// ReadAll drains a Source into a Buffer: planar, immutable, shareable. A
// Buffer is what the asset cache stores and what playback sessions read
// from. Buffer.Reverse produces a reversed copy, Buffer.Reader turns it back
// into a Source.
//
// # Registry
//
// Registry maps file extensions to Decoders. Extensions are case-insensitive
// and may be given with or without the leading dot.
package audio
