package main

import (
	"context"
	"fmt"
	"time"

	"github.com/0xlemi/notetrainer/internal/audio"
	"github.com/0xlemi/notetrainer/internal/observe"
	"github.com/0xlemi/notetrainer/internal/pitch"
	"github.com/0xlemi/notetrainer/internal/session"
	"github.com/spf13/cobra"
)

func newToneCmd(g *globalOptions) *cobra.Command {
	var (
		instrumentID string
		freq         float64
		harmonics    []float64
		duration     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Run the detector on a synthetic tone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if instrumentID != "" {
				cfg.Instrument = instrumentID
			}
			if freq <= 0 || freq >= float64(cfg.Audio.SampleRate)/2 {
				return fmt.Errorf("frequency %.2f Hz is outside (0, %d)", freq, cfg.Audio.SampleRate/2)
			}

			logger := newLogger(cfg.LogLevel, cmd.ErrOrStderr())
			table, err := loadTable(cfg)
			if err != nil {
				return err
			}
			det, err := pitch.NewNSDFDetector(cfg.DetectorParams())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ctrl, err := session.New(session.Config{
				Table:      table,
				Estimator:  det,
				Stabilizer: cfg.StabilizerParams(),
				Display: session.DisplayFunc(func(r session.Result) {
					fmt.Fprintln(out, r)
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

			src := audio.NewToneSource(cfg.Audio.FrameSize, cfg.Audio.SampleRate)
			src.SetTone(freq, 0.5)
			src.SetHarmonics(harmonics...)

			ctx, cancel := context.WithTimeout(cmd.Context(), duration)
			defer cancel()
			return ctrl.Run(ctx, src, 0)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&instrumentID, "instrument", "i", "", "instrument to transpose for")
	f.Float64Var(&freq, "freq", 440, "tone frequency in Hz")
	f.Float64SliceVar(&harmonics, "harmonics", nil, "relative amplitudes of partials 2, 3, ...")
	f.DurationVar(&duration, "duration", 500*time.Millisecond, "how long to run")
	return cmd
}
