package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/0xlemi/notetrainer/internal/audio"
	"github.com/0xlemi/notetrainer/internal/midiout"
	"github.com/0xlemi/notetrainer/internal/music"
	"github.com/0xlemi/notetrainer/internal/observe"
	"github.com/0xlemi/notetrainer/internal/pitch"
	"github.com/0xlemi/notetrainer/internal/session"
	"github.com/0xlemi/notetrainer/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type listenOptions struct {
	instrument  string
	target      string
	noUI        bool
	midiOut     string
	metricsAddr string
}

func newListenCmd(g *globalOptions) *cobra.Command {
	opts := &listenOptions{}
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Listen to the microphone and show the written note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListen(cmd.Context(), g, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.instrument, "instrument", "i", "", "instrument to transpose for (see 'notetrainer instruments')")
	f.StringVarP(&opts.target, "target", "t", "", "written note to practice, e.g. Bb4")
	f.BoolVar(&opts.noUI, "no-ui", false, "print notes as lines instead of running the terminal UI")
	f.StringVar(&opts.midiOut, "midi-out", "", "echo detected notes to this MIDI output port")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

func runListen(ctx context.Context, g *globalOptions, opts *listenOptions) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	if opts.instrument != "" {
		cfg.Instrument = opts.instrument
	}
	if opts.midiOut != "" {
		cfg.MIDI.OutPort = opts.midiOut
	}
	if opts.metricsAddr != "" {
		cfg.Metrics.ListenAddr = opts.metricsAddr
	}

	logger := newLogger(cfg.LogLevel, os.Stderr)
	if !opts.noUI {
		var closeLog func() error
		if logger, closeLog, err = uiLogger(cfg); err != nil {
			return err
		}
		defer closeLog()
	}
	slog.SetDefault(logger)

	table, err := loadTable(cfg)
	if err != nil {
		return err
	}
	det, err := pitch.NewNSDFDetector(cfg.DetectorParams())
	if err != nil {
		return err
	}

	var target int
	if opts.target != "" {
		if target, err = music.ParseNote(opts.target); err != nil {
			return err
		}
	}

	// Cancelled when the frame loop ends so the UI and metrics server follow.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// ── Metrics ───────────────────────────────────────────────────────────────
	var srv *http.Server
	if cfg.Metrics.ListenAddr != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			if err := shutdown(sctx); err != nil {
				logger.Warn("metrics shutdown failed", "err", err)
			}
		}()
		srv = observe.NewServer(cfg.Metrics.ListenAddr)
	}

	// ── Displays ──────────────────────────────────────────────────────────────
	var displays session.MultiDisplay
	var program *tea.Program
	if opts.noUI {
		displays = append(displays, session.DisplayFunc(func(r session.Result) {
			fmt.Println(r)
		}))
	} else {
		program = tea.NewProgram(ui.NewModel(cfg.Instrument), tea.WithAltScreen(), tea.WithContext(ctx))
		displays = append(displays, ui.NewDisplay(program))
	}
	if cfg.MIDI.OutPort != "" {
		sink, err := midiout.Open(cfg.MIDI.OutPort, cfg.MIDI.Channel, cfg.MIDI.Velocity, logger)
		if err != nil {
			return fmt.Errorf("%w (available: %v)", err, midiout.Ports())
		}
		defer sink.Close()
		displays = append(displays, sink)
	}

	ctrl, err := session.New(session.Config{
		Table:      table,
		Estimator:  det,
		Stabilizer: cfg.StabilizerParams(),
		Display:    displays,
		Metrics:    observe.DefaultMetrics(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	if err := ctrl.Start(cfg.Instrument); err != nil {
		return err
	}
	defer ctrl.Stop()
	if opts.target != "" {
		if err := ctrl.SetTarget(target); err != nil {
			return err
		}
	}

	capturer, err := audio.NewPortAudioCapturer(cfg.Audio.FrameSize, cfg.Audio.BlockSize, cfg.Audio.SampleRate, cfg.Audio.Channels)
	if err != nil {
		return err
	}
	capturer.SetAmplification(float32(cfg.Audio.Amplification))

	// ── Run ───────────────────────────────────────────────────────────────────
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer cancel()
		return ctrl.Run(egCtx, capturer, cfg.Audio.Tick)
	})

	if program != nil {
		eg.Go(func() error {
			defer ctrl.Stop()
			_, err := program.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	if srv != nil {
		eg.Go(func() error {
			logger.Info("serving metrics", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
	}

	logger.Info("listening", "instrument", cfg.Instrument, "frame_size", cfg.Audio.FrameSize, "method", cfg.Detector.Method)
	return ignoreCanceled(eg.Wait())
}
