package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/export"
	"github.com/ayusman/mudra/internal/hand"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/session"
	"github.com/ayusman/mudra/internal/testframes"
	"github.com/ayusman/mudra/pkg/logger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var replay string
	var start bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and live event stream",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			staticDir := e.cfg.StaticDir
			if staticDir == "" {
				staticDir = findWebDir()
			}
			if staticDir != "" {
				e.log.Info(ctx, "serving static files", logger.String("dir", staticDir))
			}

			srv := server.New(server.Config{
				StaticDir: staticDir,
				App:       e.app,
				Records:   e.records,
				Metrics:   e.metrics,
				Logger:    logger.Get(),
			})

			if start || replay != "" {
				e.app.StartSession(ctx)
			}
			if replay != "" {
				frames, err := loadFrames(replay)
				if err != nil {
					return err
				}
				src := hand.NewMockSource(frames, e.cfg.Replay.Loop)
				go func() {
					defer src.Close()
					if err := e.app.Run(ctx, src, e.cfg.Replay.FPS); err != nil && !errors.Is(err, context.Canceled) {
						e.log.Error(ctx, "replay stopped", logger.Error(err))
					}
				}()
			}

			return srv.Serve(ctx, e.cfg.Addr)
		},
	}
	cmd.Flags().StringVar(&replay, "replay", "", "feed frames from a JSON-lines file or a built-in recording")
	cmd.Flags().BoolVar(&start, "start", false, "start a session immediately")
	return cmd
}

func newReplayCmd(opts *rootOptions) *cobra.Command {
	var outDir string
	var fps int

	cmd := &cobra.Command{
		Use:   "replay <file|recording>",
		Short: "Run a session offline from recorded frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			frames, err := loadFrames(args[0])
			if err != nil {
				return err
			}

			e.app.StartSession(ctx)
			if err := e.app.RunUntilDone(ctx, hand.NewMockSource(frames, false), fps); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			st := e.app.Status()
			report, err := e.app.Report()
			if err != nil {
				return fmt.Errorf("session did not finish (%s): %w", st.State, err)
			}
			_, _ = fmt.Fprintln(out, report.String())
			if st.State != session.StateSessionComplete && st.Message != "" {
				_, _ = fmt.Fprintln(out, st.Message)
			}

			rec := e.app.Record()
			if rec == nil {
				return nil
			}
			if outDir == "" {
				outDir = e.cfg.DataDir
			}
			path, err := writeCSV(outDir, rec.SessionDate, rec.Rows)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "rows written to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory for the CSV export (default data_dir)")
	cmd.Flags().IntVar(&fps, "fps", 0, "pace frames at this rate; 0 runs as fast as possible")
	return cmd
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Show the previous session record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := loadPrevious(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "session %s on %s\n", rec.ID, rec.SessionDate.Format("2006-01-02 15:04:05"))
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "FINGER\tMAX STRENGTH")
			for f := hand.Thumb; f <= hand.Pinky; f++ {
				_, _ = fmt.Fprintf(tw, "%s\t%.3f\n", f, rec.MaxStrength[f])
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "%d rows\n", len(rec.Rows))
			return nil
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the previous session's rows as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := loadPrevious(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if outDir == "-" {
				return export.WriteRows(cmd.OutOrStdout(), rec.Rows)
			}
			path, err := writeCSV(outDir, rec.SessionDate, rec.Rows)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", `output directory, or "-" for stdout`)
	return cmd
}

func newCalibrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate <file|recording>",
		Short: "Derive the reference hand length from recorded frames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, opts)
			if err != nil {
				return err
			}
			defer e.Close()

			frames, err := loadFrames(args[0])
			if err != nil {
				return err
			}
			var samples []hand.Skeleton
			for i := range frames {
				for _, side := range hand.Sides {
					if r := frames[i].Hand(side); r.Tracked {
						samples = append(samples, r.Skeleton)
					}
				}
			}

			cal, err := e.app.Calibrate(ctx, samples)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reference_hand_length %.4f (std dev %.4f, %d samples, %d skipped)\n",
				cal.ReferenceHandLength, cal.StdDev, cal.Samples, cal.Skipped)
			return nil
		},
	}
}

// loadFrames reads a JSON-lines frame file, falling back to a built-in
// recording of that name.
func loadFrames(name string) ([]hand.Frame, error) {
	f, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		frames, embErr := testframes.Frames(name)
		if embErr != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		return frames, nil
	}
	if err != nil {
		return nil, err
	}

	src := hand.NewReplaySource(f)
	defer src.Close()

	var frames []hand.Frame
	for {
		frame, err := src.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		frames = append(frames, frame)
	}
}

func writeCSV(dir string, started time.Time, rows []session.Row) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, export.FileName(started))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := export.WriteRows(f, rows); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".mudra", "web")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
