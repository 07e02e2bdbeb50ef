// SPDX-License-Identifier: EPL-2.0

package audplay

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ik5/audplay/assets"
	"github.com/ik5/audplay/effect"
	"github.com/ik5/audplay/graph"
	"github.com/ik5/audplay/internal/audiotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"json logs", func(c *Config) { c.LogFormat = "JSON" }, true},
		{"low rate", func(c *Config) { c.SampleRate = 4000 }, false},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }, false},
		{"extension with separator", func(c *Config) { c.Extension = "a/b" }, false},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, false},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.SampleRate = 8000
	cfg.BasePath = t.TempDir()
	cfg.Extension = "wav"
	return cfg
}

func TestEngine_PlaysThroughGraph(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	samples := make([]int16, 8000)
	for i := range samples {
		samples[i] = 8192
	}
	audiotest.WriteWAV(t, filepath.Join(cfg.BasePath, "tone.wav"), 8000, samples)

	eng, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	s, err := eng.Assets().Create(context.Background(), "tone", false)
	require.NoError(t, err)
	gain, err := s.AddEffect(effect.Gain)
	require.NoError(t, err)
	gain.SetValue(0.5)
	require.NoError(t, s.Play())

	pcm, err := eng.Render(100*time.Millisecond, 8000)
	require.NoError(t, err)
	require.Len(t, pcm, 800)
	assert.InDelta(t, 4096, pcm[len(pcm)-1], 2)
	assert.Equal(t, 100*time.Millisecond, eng.Graph().CurrentTime())
}

func TestEngine_RenderResamples(t *testing.T) {
	t.Parallel()

	eng, err := New(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	pcm, err := eng.Render(time.Second, 16000)
	require.NoError(t, err)
	assert.InDelta(t, 16000, len(pcm), 8)
	for _, v := range pcm {
		require.Zero(t, v)
	}
}

func TestEngine_Close(t *testing.T) {
	t.Parallel()

	eng, err := New(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, eng.Close())
	assert.ErrorIs(t, eng.Close(), ErrEngineClosed)
	assert.ErrorIs(t, eng.Start(), ErrEngineClosed)

	_, err = eng.Assets().Create(context.Background(), "tone", false)
	assert.ErrorIs(t, err, assets.ErrDestroyed)

	_, err = eng.Render(time.Second, 8000)
	assert.ErrorIs(t, err, graph.ErrClosed)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.SampleRate = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
