// SPDX-License-Identifier: EPL-2.0

package main

import (
	"fmt"

	"github.com/ik5/audplay"
	"github.com/ik5/audplay/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     audplay.Config
)

var rootCmd = &cobra.Command{
	Use:   "audplay",
	Short: "Play, stream and render sound cues",
	Long: `audplay resolves sound names against a base directory, decodes them once
into a shared cache and plays them through a gain, pan and reverb chain.

Configuration is read from audplay.yaml, AUDPLAY_* environment variables
and the flags below, later sources overriding earlier ones.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./audplay.yaml)")
	config.RegisterFlags(rootCmd.PersistentFlags())
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := c.ConfigureLogging(); err != nil {
		return err
	}
	cfg = c
	return nil
}
