// Package main is the wildlife detection CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/nvr-ai/go-wildlife/config"
	"github.com/nvr-ai/go-wildlife/detector"
	"github.com/nvr-ai/go-wildlife/logging"
	"github.com/nvr-ai/go-wildlife/models/postprocess"
	"github.com/nvr-ai/go-wildlife/util"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	flagModel       = "model"
	flagOrtLib      = "ort-lib"
	flagConf        = "conf"
	flagIoU         = "iou"
	flagClassAware  = "class-aware"
	flagPoolSize    = "pool-size"
	flagProvider    = "provider"
	flagDraw        = "draw"
	flagMock        = "mock"
	flagConcurrency = "concurrency"
	flagOutputDir   = "output-dir"
	flagLogLevel    = "log-level"
	flagEnvFile     = "env-file"

	// alertMinConfidence is the primary confidence above which a report is
	// flagged as an alert.
	alertMinConfidence = 0.5
)

// report is the JSON line printed per image.
type report struct {
	Path          string                   `json:"path"`
	Mode          detector.Mode            `json:"mode"`
	Detections    postprocess.DetectionSet `json:"detections"`
	Primary       postprocess.Primary      `json:"primary"`
	Alert         bool                     `json:"alert"`
	AnnotatedPath string                   `json:"annotated_path,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "detect",
		Usage:     "detect animals in images with a YOLOv8 ONNX model",
		ArgsUsage: "<image-or-directory>...",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagModel, Usage: "ONNX model `FILE`"},
			&cli.StringFlag{Name: flagOrtLib, Usage: "ONNX Runtime shared library `FILE`"},
			&cli.Float64Flag{Name: flagConf, Usage: "confidence threshold"},
			&cli.Float64Flag{Name: flagIoU, Usage: "NMS IoU threshold"},
			&cli.BoolFlag{Name: flagClassAware, Usage: "only suppress overlapping boxes of the same class"},
			&cli.IntFlag{Name: flagPoolSize, Usage: "number of model sessions"},
			&cli.StringFlag{Name: flagProvider, Usage: "execution provider (cpu, cuda, coreml, openvino)"},
			&cli.BoolFlag{Name: flagDraw, Usage: "write annotated copies of images with detections"},
			&cli.BoolFlag{Name: flagMock, Usage: "skip the model and report synthetic detections"},
			&cli.IntFlag{Name: flagConcurrency, Value: 1, Usage: "images processed in parallel"},
			&cli.StringFlag{Name: flagOutputDir, Usage: "`DIR` for annotated images without a source path"},
			&cli.StringFlag{Name: flagLogLevel, Usage: "log level (debug, info, warn, error)"},
			&cli.StringFlag{Name: flagEnvFile, Value: ".env", Usage: "dotenv `FILE` with WILDLIFE_* settings"},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("no images given")
	}

	cfg, err := config.Load(c.String(flagEnvFile))
	if err != nil {
		return err
	}
	applyFlags(c, &cfg)

	logger, err := logging.NewLogger("detect", cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	defer logger.Sync() //nolint:errcheck

	raws, err := util.LoadPaths(c.Args().Slice())
	if err != nil {
		return err
	}

	d, err := detector.New(cfg, logger)
	if err != nil {
		return err
	}
	defer d.Close()

	results, err := d.DetectAll(c.Context, raws, c.Bool(flagDraw), c.Int(flagConcurrency))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.App.Writer)
	for i, res := range results {
		if err := enc.Encode(newReport(raws[i].Path, d.Mode(), res)); err != nil {
			return err
		}
	}

	stats := d.Stats()
	logger.Infow("done", "mode", d.Mode(), "images", stats.Images, "detections", stats.Detections,
		"animals", stats.Animals, "elapsed", stats.TotalTime)
	d.Profiler().Report(logger)
	return nil
}

func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet(flagModel) {
		cfg.ModelPath = c.String(flagModel)
	}
	if c.IsSet(flagOrtLib) {
		cfg.SharedLibPath = c.String(flagOrtLib)
	}
	if c.IsSet(flagConf) {
		cfg.ConfThreshold = float32(c.Float64(flagConf))
	}
	if c.IsSet(flagIoU) {
		cfg.IoUThreshold = float32(c.Float64(flagIoU))
	}
	if c.IsSet(flagClassAware) {
		cfg.ClassAwareNMS = c.Bool(flagClassAware)
	}
	if c.IsSet(flagPoolSize) {
		cfg.PoolSize = c.Int(flagPoolSize)
	}
	if c.IsSet(flagProvider) {
		cfg.Provider = c.String(flagProvider)
	}
	if c.IsSet(flagMock) {
		cfg.ForceMock = c.Bool(flagMock)
	}
	if c.IsSet(flagOutputDir) {
		cfg.OutputDir = c.String(flagOutputDir)
	}
	if c.IsSet(flagLogLevel) {
		cfg.LogLevel = c.String(flagLogLevel)
	}
}

func newReport(path string, mode detector.Mode, res *detector.Result) report {
	primary := detector.SelectPrimary(res.Detections)
	detections := res.Detections
	if detections == nil {
		detections = postprocess.DetectionSet{}
	}
	return report{
		Path:          path,
		Mode:          mode,
		Detections:    detections,
		Primary:       primary,
		Alert:         !primary.IsNone() && primary.Confidence > alertMinConfidence,
		AnnotatedPath: res.AnnotatedPath,
	}
}
