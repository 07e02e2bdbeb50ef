// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ik5/audplay"
	"github.com/spf13/cobra"
)

var preloadFull bool

var preloadCmd = &cobra.Command{
	Use:   "preload NAME...",
	Short: "Decode sounds into the cache and report them",
	Long: `Loads every named sound concurrently, the way an application warms its
cache at startup, and prints what was decoded. Fails if any sound fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPreload,
}

func init() {
	preloadCmd.Flags().BoolVar(&preloadFull, "full", false, "names are full paths")
	rootCmd.AddCommand(preloadCmd)
}

func runPreload(cmd *cobra.Command, args []string) error {
	eng, err := audplay.New(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	m := eng.Assets()
	sessions, err := m.LoadBatch(cmd.Context(), args, preloadFull)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tDURATION\tCHANNELS\tREFS")
	for _, s := range sessions {
		buf := s.Buffer()
		fmt.Fprintf(w, "%s\t%v\t%d\t%d\n", s.Path(), buf.Duration(), buf.Channels(), m.Refs(s.Path()))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, s := range sessions {
		if err := m.FreeSound(s); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d cached\n", m.Len())
	return nil
}
