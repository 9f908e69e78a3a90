// Package main provides the CLI entry point for framepace.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/user/framepace/pkg/adapters/logger"
	"github.com/user/framepace/pkg/adapters/osfilesystem"
	"github.com/user/framepace/pkg/adapters/systemclock"
	"github.com/user/framepace/pkg/config"
	"github.com/user/framepace/pkg/player"
	"github.com/user/framepace/pkg/ports"
	"github.com/user/framepace/pkg/probe"
	"github.com/user/framepace/pkg/report"
	"github.com/user/framepace/pkg/synth"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %s", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "framepace",
		Usage:   l10n.T("Decode video files into paced RGBA frames"),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Value: "info", Usage: l10n.T("Log level (debug, info, warn, error)")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: l10n.T("Suppress all log output")},
		},
		Commands: []*cli.Command{
			playCommand(),
			probeCommand(),
			synthCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, l10n.F("framepace version %s", version))
					return nil
				},
			},
		},
	}
}

func newLogger(c *cli.Context, level string) ports.Logger {
	if c.Bool("quiet") {
		return logger.NewNoop()
	}
	return logger.NewConsole(ports.ParseLogLevel(level))
}

// loadConfig reads --config when given and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}

	if c.IsSet("mode") {
		cfg.Mode = c.String("mode")
	}
	if c.IsSet("no-pace") {
		cfg.Pace = !c.Bool("no-pace")
	}
	if c.IsSet("max-frames") {
		cfg.MaxFrames = c.Int("max-frames")
	}
	if c.IsSet("sink") {
		cfg.Sink.Kind = c.String("sink")
	}
	if c.IsSet("out") {
		cfg.Sink.Dir = c.String("out")
		cfg.Sheet.Path = c.String("out")
	}
	if c.IsSet("width") {
		cfg.Sink.Width = c.Int("width")
		cfg.Sheet.CellWidth = c.Int("width")
	}
	if c.IsSet("every") {
		cfg.Sink.Every = c.Int("every")
		cfg.Sheet.Every = c.Int("every")
	}
	if c.IsSet("report") {
		cfg.Report.Path = c.String("report")
	}
	if c.IsSet("report-format") {
		cfg.Report.Format = c.String("report-format")
	}
	return cfg, cfg.Validate()
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Decode a video and deliver its frames in real time"),
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Usage: l10n.T("Pixel conversion (grayscale, color)")},
			&cli.BoolFlag{Name: "no-pace", Usage: l10n.T("Deliver frames as fast as they decode")},
			&cli.IntFlag{Name: "max-frames", Usage: l10n.T("Stop after this many frames (0 = all)")},
			&cli.StringFlag{Name: "sink", Usage: l10n.T("Frame output (null, png, sheet)")},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: l10n.T("Output directory for png, file for sheet")},
			&cli.IntFlag{Name: "width", Usage: l10n.T("Scale output frames to this width")},
			&cli.IntFlag{Name: "every", Usage: l10n.T("Keep one frame out of every N")},
			&cli.StringFlag{Name: "report", Usage: l10n.T("Write a playback summary to this file")},
			&cli.StringFlag{Name: "report-format", Usage: l10n.T("Summary format (markdown, json)")},
		},
		Action: runPlay,
	}
}

func runPlay(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("Exactly one input file is required"))
	}
	path := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := newLogger(c, cfg.LogLevel)

	opts, err := cfg.ToPlayerOptions()
	if err != nil {
		return err
	}
	fs := osfilesystem.New()
	opts.FileSystem = fs
	opts.Clock = systemclock.New()
	opts.Logger = log

	sink, err := cfg.NewSink(fs)
	if err != nil {
		return err
	}

	log.Info("Playing %s", path)
	started := time.Now()
	session, err := player.Open(c.Context, path, opts)
	if err != nil {
		return err
	}
	defer session.Close()

	d := session.Descriptor()
	log.Info("Video stream %d: %s %dx%d, time base %s", d.Index, d.Codec, d.Width, d.Height, d.TimeBase)

	n, playErr := player.Play(c.Context, session, sink)
	if errors.Is(playErr, context.Canceled) {
		log.Warn("Interrupted, shutting down...")
	}
	if err := sink.Close(); err != nil && playErr == nil {
		playErr = fmt.Errorf("close sink: %w", err)
	}
	wall := time.Since(started)

	st := session.Stats()
	log.Info("Delivered %d frames in %s (%d late, max lateness %s)", n, wall.Round(time.Millisecond), st.LateFrames, st.MaxLateness.Round(time.Millisecond))

	if cfg.Report.Path != "" {
		if err := writeReport(fs, cfg, session, wall); err != nil {
			log.Error("Failed to write summary: %s", err)
		} else {
			log.Info("Summary saved to %s", cfg.Report.Path)
		}
	}
	return playErr
}

func writeReport(fs ports.FileSystem, cfg config.Config, s *player.Session, wall time.Duration) error {
	formatter, err := report.FormatterFor(cfg.Report.Format)
	if err != nil {
		return err
	}
	summary := report.NewBuilder().FromSession(s, cfg.Pace, wall).Build()
	return report.NewWriter(fs, formatter).Write(cfg.Report.Path, summary)
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     l10n.T("Show the streams of one or more files"),
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "jobs", Aliases: []string{"j"}, Value: 4, Usage: l10n.T("Files probed in parallel")},
		},
		Action: runProbe,
	}
}

type probeOutcome struct {
	path string
	res  *probe.Result
	err  error
}

func runProbe(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New(l10n.T("At least one input file is required"))
	}
	paths := c.Args().Slice()
	outcomes := make([]probeOutcome, len(paths))
	prober := probe.New(osfilesystem.New(), nil, newLogger(c, c.String("log-level")).WithComponent("probe"))

	g, ctx := errgroup.WithContext(c.Context)
	g.SetLimit(max(1, c.Int("jobs")))
	for i, path := range paths {
		i, path := i, path // per-iteration copies; go directive is below 1.22
		g.Go(func() error {
			res, err := prober.Open(ctx, path)
			outcomes[i] = probeOutcome{path: path, res: res, err: err}
			if res != nil {
				res.Close()
			}
			// a file that fails to open is reported, not fatal
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join([]string{
		l10n.T("FILE"), l10n.T("CONTAINER"), l10n.T("STREAMS"), l10n.T("VIDEO"), l10n.T("TIME BASE"), l10n.T("NOTES"),
	}, "\t"))
	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			fmt.Fprintf(w, "%s\t-\t-\t%s\t-\t-\n", o.path, o.err)
			continue
		}
		d := o.res.Descriptor
		notes := "-"
		if o.res.Limitation != "" {
			notes = l10n.T(o.res.Limitation)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t#%d %s %dx%d\t%s\t%s\n",
			o.path, o.res.Container, describeStreams(o.res.Streams), d.Index, d.Codec, d.Width, d.Height, d.TimeBase, notes)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return errors.New(l10n.F("%d of %d files could not be opened", failed, len(paths)))
	}
	return nil
}

func describeStreams(streams []ports.StreamInfo) string {
	parts := make([]string, len(streams))
	for i, s := range streams {
		parts[i] = fmt.Sprintf("%s/%s", s.MediaType, s.Codec)
	}
	return strings.Join(parts, ",")
}

func synthCommand() *cli.Command {
	def := synth.DefaultOptions()
	return &cli.Command{
		Name:      "synth",
		Usage:     l10n.T("Generate a Motion-JPEG test clip"),
		ArgsUsage: "<output.mp4|output.ivf>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "width", Value: def.Width, Usage: l10n.T("Frame width")},
			&cli.IntFlag{Name: "height", Value: def.Height, Usage: l10n.T("Frame height")},
			&cli.IntFlag{Name: "frames", Value: def.Frames, Usage: l10n.T("Number of frames")},
			&cli.IntFlag{Name: "fps", Value: def.FrameRate, Usage: l10n.T("Frames per second")},
			&cli.BoolFlag{Name: "gray", Usage: l10n.T("Encode grayscale JPEGs")},
			&cli.BoolFlag{Name: "flat", Usage: l10n.T("Draw flat gray frames instead of a test card")},
			&cli.BoolFlag{Name: "audio", Usage: l10n.T("Add a silent audio track (MP4 only)")},
			&cli.BoolFlag{Name: "progressive", Usage: l10n.T("Write MP4 without movie fragments")},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New(l10n.T("Exactly one output file is required"))
			}
			out := c.Args().First()

			o := def
			o.Width = c.Int("width")
			o.Height = c.Int("height")
			o.Frames = c.Int("frames")
			o.FrameRate = c.Int("fps")
			o.Gray = c.Bool("gray")
			o.Flat = c.Bool("flat")
			o.WithAudio = c.Bool("audio")
			o.Progressive = c.Bool("progressive")
			o.Container = synth.ContainerMP4
			if strings.EqualFold(filepath.Ext(out), ".ivf") {
				o.Container = synth.ContainerIVF
			}

			data, err := synth.Bytes(o)
			if err != nil {
				return err
			}
			if err := osfilesystem.New().WriteFile(out, data); err != nil {
				return err
			}
			newLogger(c, c.String("log-level")).Info("Wrote %d frames to %s", o.Frames, out)
			return nil
		},
	}
}
