package main

import (
	"context"
	"fmt"
	"io"

	"github.com/0xlemi/notetrainer/internal/audio"
	"github.com/0xlemi/notetrainer/internal/config"
	"github.com/0xlemi/notetrainer/internal/observe"
	"github.com/0xlemi/notetrainer/internal/pitch"
	"github.com/0xlemi/notetrainer/internal/session"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(g *globalOptions) *cobra.Command {
	var instrumentID string
	cmd := &cobra.Command{
		Use:   "analyze FILE.wav",
		Short: "Print the notes detected in a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if instrumentID != "" {
				cfg.Instrument = instrumentID
			}
			src, err := audio.OpenWAV(args[0], cfg.Audio.FrameSize, cfg.Audio.HopSize)
			if err != nil {
				return err
			}
			return analyze(cmd.Context(), cfg, src, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVarP(&instrumentID, "instrument", "i", "", "instrument to transpose for")
	return cmd
}

// analyze runs a session over a finite source and prints every change with
// its position in the file.
func analyze(ctx context.Context, cfg *config.Config, src *audio.WAVSource, out, logOut io.Writer) error {
	logger := newLogger(cfg.LogLevel, logOut)

	table, err := loadTable(cfg)
	if err != nil {
		return err
	}
	det, err := pitch.NewNSDFDetector(cfg.DetectorParams())
	if err != nil {
		return err
	}

	ctrl, err := session.New(session.Config{
		Table:      table,
		Estimator:  det,
		Stabilizer: cfg.StabilizerParams(),
		Display: session.DisplayFunc(func(r session.Result) {
			fmt.Fprintf(out, "%8.3fs  %s\n", src.Offset(), r)
		}),
		Metrics: observe.DefaultMetrics(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	if err := ctrl.Start(cfg.Instrument); err != nil {
		return err
	}
	defer ctrl.Stop()

	logger.Debug("analyzing", "sample_rate", src.SampleRate(), "frame_size", cfg.Audio.FrameSize, "hop_size", cfg.Audio.HopSize)
	return ctrl.Run(ctx, src, 0)
}
