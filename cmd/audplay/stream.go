// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/ik5/audplay"
	"github.com/spf13/cobra"
)

var streamOpts struct {
	full    bool
	speed   float64
	loop    bool
	effects effectFlags
}

var streamCmd = &cobra.Command{
	Use:   "stream NAME",
	Short: "Play a sound while it is being decoded",
	Long: `Streams a long sound, such as music, without decoding it up front.
The stream bypasses the cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

func init() {
	fs := streamCmd.Flags()
	fs.BoolVar(&streamOpts.full, "full", false, "name is a full path")
	fs.Float64Var(&streamOpts.speed, "speed", 1, "playback speed")
	fs.BoolVar(&streamOpts.loop, "loop", false, "loop until interrupted")
	streamOpts.effects.register(fs)

	rootCmd.AddCommand(streamCmd)
}

func runStream(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	eng, err := audplay.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	s, err := eng.Assets().CreateStream(ctx, args[0], streamOpts.full)
	if err != nil {
		return err
	}
	defer s.Destroy()

	if err := s.SetSpeed(streamOpts.speed); err != nil {
		return fmt.Errorf("speed %v: %w", streamOpts.speed, err)
	}
	if err := s.SetLooped(streamOpts.loop); err != nil {
		return err
	}
	if err := streamOpts.effects.apply(ctx, s); err != nil {
		return err
	}

	if err := eng.Start(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "streaming %s\n", s.Path())
	if err := s.PlayWait(ctx); err != nil {
		return ignoreInterrupt(err)
	}
	return s.Err()
}
