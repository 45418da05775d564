package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"moodmusic/model"
	"moodmusic/musicgen"
	"moodmusic/prompt"
)

type generateOptions struct {
	emotion   string
	variation int
	prompt    string
	out       string
	timeout   time.Duration
}

// newGenerateCmd is the offline path: one synthesis call with a long
// budget, audio written to a local file, nothing cataloged.
func newGenerateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesize one track to a local WAV file",
		Example: `  moodmusic generate --emotion Happy --out happy.wav
  moodmusic generate --emotion Sad --variation 2 --out sad.wav
  moodmusic generate --prompt "slow ambient pads" --out pads.wav --timeout 10m`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfigFlag(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("timeout") {
				opts.timeout = cfg.Synthesis.OfflineTimeout
			}
			return runGenerate(cmd, cfg, opts, cmd.Flags().Changed("variation"))
		},
	}

	cmd.Flags().StringVarP(&opts.emotion, "emotion", "e", "", "emotion label: Angry, Disgust, Fear, Happy, Sad, Surprise or Neutral")
	cmd.Flags().IntVar(&opts.variation, "variation", 0, "variation level 0-3 (uses the regeneration prompt)")
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "raw prompt, instead of one composed from --emotion")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output WAV file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", musicgen.MaxTimeout, "synthesis timeout, at most 10m")
	cmd.MarkFlagsMutuallyExclusive("variation", "prompt")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// composePrompt picks the prompt the way the server would: base prompt for
// a first generation, stem and suffix when a variation is asked for.
func composePrompt(opts generateOptions, withVariation bool) (string, error) {
	if opts.prompt != "" {
		return opts.prompt, nil
	}
	if opts.emotion == "" {
		return "", errors.New("either --emotion or --prompt is required")
	}

	e, err := model.ParseEmotion(opts.emotion)
	if err != nil {
		return "", err
	}
	if withVariation {
		return prompt.Variation(e, opts.variation), nil
	}
	return prompt.Base(e), nil
}

func runGenerate(cmd *cobra.Command, cfg *Config, opts generateOptions, withVariation bool) error {
	p, err := composePrompt(opts, withVariation)
	if err != nil {
		return err
	}
	if opts.timeout > musicgen.MaxTimeout {
		return fmt.Errorf("--timeout %s exceeds %s", opts.timeout, musicgen.MaxTimeout)
	}

	client := musicgen.NewClient(cfg.Synthesis.BaseURL, musicgen.WithMaxNewTokens(cfg.Synthesis.MaxNewTokens))

	logger.WithField("prompt", p).WithField("timeout", opts.timeout.String()).Info("generate: synthesizing")
	audio, err := client.Synthesize(cmd.Context(), p, opts.timeout)
	if err != nil {
		return err
	}

	if err := os.WriteFile(opts.out, audio, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\nprompt: %s\n", len(audio), opts.out, p)
	return nil
}
