// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/ik5/audplay"
	"github.com/ik5/audplay/formats/wav"
	"github.com/spf13/cobra"
)

var renderOpts struct {
	full    bool
	output  string
	rate    int
	pitch   float64
	reverse bool
	tail    time.Duration
	effects effectFlags
}

var renderCmd = &cobra.Command{
	Use:   "render NAME",
	Short: "Render a sound through its effect chain into a mono WAV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

func init() {
	fs := renderCmd.Flags()
	fs.BoolVar(&renderOpts.full, "full", false, "name is a full path")
	fs.StringVarP(&renderOpts.output, "output", "o", "out.wav", "output WAV file")
	fs.IntVar(&renderOpts.rate, "rate", 16000, "output sample rate in Hz")
	fs.Float64Var(&renderOpts.pitch, "pitch", 1, "playback rate and pitch")
	fs.BoolVar(&renderOpts.reverse, "reverse", false, "play the sound backwards")
	fs.DurationVar(&renderOpts.tail, "tail", 0, "extra time rendered after the sound ends")
	renderOpts.effects.register(fs)

	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := audplay.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	s, err := eng.Assets().Create(ctx, args[0], renderOpts.full)
	if err != nil {
		return err
	}
	if renderOpts.reverse {
		if err := s.Reverse(); err != nil {
			return err
		}
	}
	if err := s.SetPitch(renderOpts.pitch); err != nil {
		return fmt.Errorf("pitch %v: %w", renderOpts.pitch, err)
	}
	if err := renderOpts.effects.apply(ctx, s); err != nil {
		return err
	}
	if err := s.Play(); err != nil {
		return err
	}

	d := time.Duration(float64(s.Duration())/renderOpts.pitch) + renderOpts.tail
	pcm16, err := eng.Render(d, renderOpts.rate)
	if err != nil {
		return err
	}

	f, err := os.Create(renderOpts.output)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer f.Close()

	if err := wav.WriteWAV16(f, renderOpts.rate, pcm16); err != nil {
		return fmt.Errorf("writing %s: %w", renderOpts.output, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", renderOpts.output, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d samples at %d Hz (%v)\n", renderOpts.output, len(pcm16), renderOpts.rate, d)
	return nil
}
