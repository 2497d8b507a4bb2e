package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tphakala/go-audio-crossfeed/internal/config"
)

// renderOptions holds the render flags. Zero values mean "not set" and leave
// the preset value in place.
type renderOptions struct {
	configPath  string
	impulseA    string
	impulseB    string
	chunkFrames int
	drainMode   string
	bitDepth    int
	verbose     bool
	cpuprofile  string
}

// inspectOptions holds the inspect flags.
type inspectOptions struct {
	impulseA   string
	impulseB   string
	sampleRate int
}

func newRootCmd(log *logrus.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "crossfeed",
		Short:         "HRTF crossfeed for headphone listening",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.SetHelpCommand(&cobra.Command{Hidden: true})

	root.AddCommand(newRenderCmd(log), newInspectCmd(log))
	return root
}

func newRenderCmd(log *logrus.Logger) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render [flags] input output.wav",
		Short: "Render an audio file through the crossfeed filter",
		Args:  cobra.ExactArgs(renderArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPreset(&opts)
			if err != nil {
				return err
			}
			configureLogger(log, cfg, opts.verbose)

			if opts.cpuprofile != "" {
				stop, err := startCPUProfile(opts.cpuprofile)
				if err != nil {
					return err
				}
				defer stop()
			}

			summary, err := render(cmd.Context(), log, cfg, args[0], args[1])
			if err != nil {
				return err
			}
			summary.print(cmd.OutOrStdout(), args[0], args[1])
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML preset file")
	flags.StringVarP(&opts.impulseA, "impulse-a", "a", "", "Stereo impulse for the left speaker position")
	flags.StringVarP(&opts.impulseB, "impulse-b", "b", "", "Stereo impulse for the right speaker position")
	flags.IntVar(&opts.chunkFrames, "chunk", 0, "Frames read per processing step (default from preset)")
	flags.StringVar(&opts.drainMode, "drain-mode", "", "End of stream behavior: exact or full")
	flags.IntVar(&opts.bitDepth, "bit-depth", 0, "Output bit depth: 16, 24 or 32 (default from preset)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output")
	flags.StringVar(&opts.cpuprofile, "cpuprofile", "", "Write CPU profile to file (for PGO)")

	return cmd
}

func newInspectCmd(log *logrus.Logger) *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the filter geometry and response of an impulse pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return inspect(cmd.OutOrStdout(), log, &opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.impulseA, "impulse-a", "a", "", "Stereo impulse for the left speaker position")
	flags.StringVarP(&opts.impulseB, "impulse-b", "b", "", "Stereo impulse for the right speaker position")
	flags.IntVarP(&opts.sampleRate, "rate", "r", 0, "Stream sample rate in Hz (default: rate of impulse A)")
	_ = cmd.MarkFlagRequired("impulse-a")
	_ = cmd.MarkFlagRequired("impulse-b")

	return cmd
}

// loadPreset reads the preset and environment, applies set flags on top and
// validates the result.
func loadPreset(opts *renderOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if opts.impulseA != "" {
		cfg.ImpulseA = opts.impulseA
	}
	if opts.impulseB != "" {
		cfg.ImpulseB = opts.impulseB
	}
	if opts.chunkFrames != 0 {
		cfg.ChunkFrames = opts.chunkFrames
	}
	if opts.drainMode != "" {
		cfg.DrainMode = opts.drainMode
	}
	if opts.bitDepth != 0 {
		cfg.BitDepth = opts.bitDepth
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configureLogger(log *logrus.Logger, cfg *config.Config, verbose bool) {
	level := cfg.Level()
	if verbose && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
}
