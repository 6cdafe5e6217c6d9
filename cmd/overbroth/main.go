// Command overbroth renders the Mandelbrot set by progressive refinement and
// writes the intermediate and final canvases as numbered image files.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/overbroth"
)

const envPrefix = "OVERBROTH"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command. Flags are bound into a private viper
// instance so each can also come from an OVERBROTH_* environment variable
// or from the file named by --config.
func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "overbroth [width height re im planeWidth target workers frameMs]",
		Short: "Progressive-refinement Mandelbrot renderer",
		Long: `overbroth renders a Mandelbrot view, refining cheap regions first.

Positional arguments are all-or-nothing: give all eight or none. With a
frame interval above zero a preview frame is written every frameMs
milliseconds; the final frame is always written. Put -- before the
arguments when a coordinate is negative:

  overbroth --format png -- 1920 1080 -1.398995 0.001901 0.0000062 524288 8 40

Assemble the frames into a video with:

  ffmpeg -r 60 -f image2 -i overbroth-%05d.ppm -vcodec libx264 -crf 25 -pix_fmt yuv420p overbroth.mp4`,
		Version:      overbroth.Version,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.String("out-dir", ".", "directory frames are written to")
	f.String("prefix", "overbroth", "frame file name prefix")
	f.String("format", string(overbroth.FormatPPM), "frame format: ppm, png or bmp")
	f.Bool("compress", false, "zstd-compress frame files")
	f.Float64("scale", 1, "scale factor for written frames (0 < scale <= 1)")
	f.Bool("stamp", false, "stamp the frame index onto written frames")
	f.Bool("skip-unchanged", false, "skip preview frames when nothing changed")
	f.Int("max-queued", 0, "bound on queued work items (0 = unbounded)")
	f.Int("submit-retries", overbroth.DefaultSubmitRetries, "retries for a submission rejected by a full queue")
	f.String("log-level", "warn", "log level: debug, info, warn or error")
	f.String("config", "", "optional config file (yaml, toml or json)")

	_ = v.BindPFlags(f)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}

func run(ctx context.Context, v *viper.Viper, args []string, stdout, stderr io.Writer) error {
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	overbroth.SetLogger(logger)
	defer overbroth.SetLogger(nil)

	p, ok := parseArgs(args)
	if !ok && len(args) > 0 {
		logger.Warn("invalid arguments, using defaults", "args", args)
	}

	format, err := overbroth.ParseFormat(v.GetString("format"))
	if err != nil {
		return err
	}
	sink := &overbroth.FileSink{
		Dir:      v.GetString("out-dir"),
		Prefix:   v.GetString("prefix"),
		Format:   format,
		Compress: v.GetBool("compress"),
		Scale:    v.GetFloat64("scale"),
		Stamp:    v.GetBool("stamp"),
	}

	r, err := overbroth.NewRenderer(p.cfg,
		overbroth.WithFrameSink(sink),
		overbroth.WithFrameInterval(p.frame),
		overbroth.WithSkipUnchanged(v.GetBool("skip-unchanged")),
		overbroth.WithMaxQueued(v.GetInt("max-queued")),
		overbroth.WithSubmitRetries(v.GetInt("submit-retries")),
	)
	if err != nil {
		return err
	}

	cfg := p.cfg
	fmt.Fprintf(stdout, "Generating: Image(%d,%d) Pos(%.6f, %.6f), Size(%.8f) Iterations(%d)\n",
		cfg.Width, cfg.Height, cfg.CenterRe, cfg.CenterIm, cfg.PlaneWidth, cfg.Target)

	stats, err := r.Render(ctx)

	pr := message.NewPrinter(language.English)
	pr.Fprintf(stdout, "Threads: %d, Jobs submitted: %d, Peak active jobs: %d, Jobs executed: %d, Refinements: %d, Frames: %d, Elapsed: %v\n",
		stats.Workers, stats.Submitted, stats.Peak, stats.Executed, stats.Refinements, stats.Frames, stats.Elapsed.Round(time.Millisecond))
	return err
}
