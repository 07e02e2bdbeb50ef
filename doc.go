// SPDX-License-Identifier: EPL-2.0

// Package audplay is an audio asset cache and playback engine for
// accessibility sound cues.
//
// An Engine ties the pieces together: a render graph running at a fixed
// sample rate, a decoder backend that picks a codec by file extension, an
// asset manager that decodes every file once and shares the result between
// sessions, and an optional output device that plays the graph.
//
//	cfg := audplay.DefaultConfig()
//	cfg.BasePath = "sounds"
//
//	eng, err := audplay.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	if err := eng.Start(); err != nil {
//	    return err
//	}
//
//	s, err := eng.Assets().Create(ctx, "ui/click", false)
//	if err != nil {
//	    return err
//	}
//	pan, _ := s.AddEffect(effect.StereoPan)
//	pan.SetValue(-0.5)
//	s.Play()
//
// # Packages
//
//   - assets: name resolution, decode deduplication, ref-counted cache
//   - playback: buffered and streaming sessions with their effect chains
//   - effect: gain, stereo pan and reverb with ramps and sweeps
//   - backend, formats/...: decoding by extension with a content sniffing fallback
//   - graph: the pull based render graph and its automation
//   - output: plays a graph on the system audio device
//
// # Offline rendering
//
// RenderToMono16 pulls the graph without a device and returns 16-bit mono
// PCM, the same shape ResampleToMono16 produces for a single decoded source.
package audplay
