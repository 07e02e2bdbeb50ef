// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/ik5/audplay"
	"github.com/ik5/audplay/playback"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var playOpts struct {
	full     bool
	pitch    float64
	loop     bool
	together bool
	effects  effectFlags
}

var playCmd = &cobra.Command{
	Use:   "play NAME...",
	Short: "Decode and play sounds",
	Long: `Loads every named sound into the cache, then plays them one after the
other, or all at once with --together. Interrupt to stop.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlay,
}

func init() {
	fs := playCmd.Flags()
	fs.BoolVar(&playOpts.full, "full", false, "names are full paths")
	fs.Float64Var(&playOpts.pitch, "pitch", 1, "playback rate and pitch")
	fs.BoolVar(&playOpts.loop, "loop", false, "loop until interrupted")
	fs.BoolVar(&playOpts.together, "together", false, "play all sounds at once")
	playOpts.effects.register(fs)

	rootCmd.AddCommand(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	eng, err := audplay.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	sessions, err := eng.Assets().LoadBatch(ctx, args, playOpts.full)
	if err != nil {
		return fmt.Errorf("loading sounds: %w", err)
	}
	for _, s := range sessions {
		if err := prepare(ctx, s); err != nil {
			return err
		}
	}

	if err := eng.Start(); err != nil {
		return err
	}

	if playOpts.together {
		g, gctx := errgroup.WithContext(ctx)
		for _, s := range sessions {
			g.Go(func() error { return s.PlayWait(gctx) })
		}
		return ignoreInterrupt(g.Wait())
	}

	for _, s := range sessions {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%v)\n", s.Path(), s.Duration())
		if err := s.PlayWait(ctx); err != nil {
			return ignoreInterrupt(err)
		}
	}
	return nil
}

func prepare(ctx context.Context, s *playback.Session) error {
	if err := s.SetPitch(playOpts.pitch); err != nil {
		return fmt.Errorf("%s: %w", s.Path(), err)
	}
	if err := s.SetLooped(playOpts.loop); err != nil {
		return err
	}
	return playOpts.effects.apply(ctx, s)
}

func ignoreInterrupt(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
