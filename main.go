// moodmusic turns a face or a voice clip into music.
//
//	moodmusic serve     # run the HTTP backend
//	moodmusic generate  # synthesize one track offline
//	moodmusic config    # print the effective config
package main

import (
	"fmt"
	"os"

	"github.com/cdfmlr/crud/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var logger = log.ZoneLogger("moodmusic")

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

const defaultConfigPath = "moodmusic.yaml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "moodmusic",
		Short:         "Emotion to music backend",
		Long:          "moodmusic classifies the emotion of a face image or voice clip, generates music for it and keeps a catalog of tracks.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "path to config file (missing file: defaults)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newGenerateCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "moodmusic %s (commit: %s)\n", Version, Commit)
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective config (file + defaults + environment)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFlag(cmd)
			if err != nil {
				return err
			}
			return cfg.Write(cmd.OutOrStdout())
		},
	}
}

// loadConfigFlag loads the config named by --config and applies its log level.
func loadConfigFlag(cmd *cobra.Command) (*Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.Logger.SetLevel(level)
	}
	return cfg, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
