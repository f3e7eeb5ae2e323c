package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/disintegration/imaging"

	"github.com/cjeanneret/RangeViz/internal/config"
	"github.com/cjeanneret/RangeViz/internal/debug"
	"github.com/cjeanneret/RangeViz/internal/logic/capture"
	"github.com/cjeanneret/RangeViz/internal/logic/scene"
	"github.com/cjeanneret/RangeViz/internal/render"
	"github.com/cjeanneret/RangeViz/internal/web"
)

// cameraOverrides are the camera parameters that can be set on the command line.
// Zero means "use the config value".
type cameraOverrides struct {
	FOVDeg      float64
	BaselineM   float64
	ImageSizePx float64
}

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	watch := flag.Bool("watch", false, "reload the config file when it changes (web mode only)")
	fovDeg := flag.Float64("fov_deg", 0, "override field of view in degrees (0-180, exclusive)")
	baselineM := flag.Float64("baseline_m", 0, "override baseline in meters (0-100]")
	imageSizePx := flag.Float64("image_size_px", 0, "override image size in pixels (1-1e9)")
	outPath := flag.String("out", "", "render one frame to this image file and exit")
	chartPath := flag.String("chart", "", "write the range error chart to this PNG file and exit")
	sweepCols := flag.String("sweep", "", "render a frame per value of param=from:to:step (raw slider values) and exit")
	sweepRows := flag.String("sweep_rows", "", "second swept param=from:to:step, traversed per -sweep value")
	sweepDir := flag.String("sweep_dir", "sweep", "output directory for -sweep frames")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := loadConfig(*cfgPath, flagSet("config"))
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Validate CLI overrides (only non-zero values are applied; zero means "use config default")
	if err := validateCLIOverrides(*fovDeg, *baselineM, *imageSizePx); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}
	overrides := cameraOverrides{FOVDeg: *fovDeg, BaselineM: *baselineM, ImageSizePx: *imageSizePx}
	applyOverrides(cfg, overrides)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.PrintStruct("Camera config", cfg.Camera)
	debug.PrintStruct("Canvas config", cfg.Canvas)

	debug.Step(1, "Loading object icons")
	sprites, err := render.LoadSprites(cfg.Objects)
	if err != nil {
		log.Fatalf("load icons failed: %v", err)
	}

	debug.Step(2, "Building scene")
	sc, err := scene.New(cfg)
	if err != nil {
		log.Fatalf("build scene failed: %v", err)
	}
	renderer, err := render.NewRenderer(sprites)
	if err != nil {
		log.Fatalf("init renderer failed: %v", err)
	}
	logSummary(sc.Snapshot())

	if *outPath != "" || *chartPath != "" {
		if err := writeOneShot(sc, renderer, cfg, *outPath, *chartPath); err != nil {
			log.Fatalf("%v", err)
		}
		if webPort.port() == 0 && *sweepCols == "" {
			return
		}
	}

	if *sweepCols != "" {
		// Sweep on its own scene so the live one keeps the configured values.
		sweepScene, err := scene.New(cfg)
		if err != nil {
			log.Fatalf("build sweep scene failed: %v", err)
		}
		n, err := runSweep(ctx, sweepScene, renderer, *sweepCols, *sweepRows, *sweepDir)
		if err != nil {
			log.Fatalf("sweep failed: %v", err)
		}
		log.Printf("%d frames written to %s", n, *sweepDir)
		if webPort.port() == 0 {
			return
		}
	}

	if port := webPort.port(); port > 0 {
		if err := serve(ctx, port, cfg, *cfgPath, *watch, overrides, sc, renderer); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	printStats(os.Stdout, sc.Snapshot())
}

// serve runs the render loop and web server until ctx is cancelled.
func serve(
	ctx context.Context,
	port int,
	cfg *config.Config,
	cfgPath string,
	watch bool,
	overrides cameraOverrides,
	sc *scene.Scene,
	renderer *render.Renderer,
) error {
	broadcaster := web.NewStatusBroadcaster()
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

	debug.Step(3, "Starting render loop")
	debug.Value("Frame interval", cfg.FrameInterval())
	loop := render.NewLoop(sc, renderer, cfg.FrameInterval())
	loop.OnChange = func(st scene.Stats) {
		if err := broadcaster.BroadcastData(web.KindStats, st); err != nil {
			debug.Error(err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	loopErr := make(chan error, 1)
	go func() {
		loopErr <- loop.Run(ctx)
		cancel()
	}()

	if watch {
		debug.Step(4, "Watching config file")
		go func() {
			err := config.Watch(ctx, cfgPath, func(c *config.Config) {
				applyOverrides(c, overrides)
				if err := loop.Reset(ctx, c); err != nil {
					debug.Error(fmt.Errorf("apply reloaded config: %w", err))
					return
				}
				debug.Live("Config reloaded from %s", cfgPath)
			}, func(err error) {
				debug.Error(fmt.Errorf("config reload: %w", err))
			})
			if err != nil {
				log.Printf("config watch stopped: %v", err)
			}
		}()
	}

	srv := web.NewServer(fmt.Sprintf(":%d", port), broadcaster, loop)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	cancel()
	return <-loopErr
}

// writeOneShot renders a single frame and/or the error chart to files.
func writeOneShot(sc *scene.Scene, renderer *render.Renderer, cfg *config.Config, outPath, chartPath string) error {
	if outPath != "" {
		if err := imaging.Save(renderer.Render(sc), outPath); err != nil {
			return fmt.Errorf("save frame: %w", err)
		}
		log.Printf("frame written to %s", outPath)
	}
	if chartPath != "" {
		f, err := os.Create(chartPath)
		if err != nil {
			return fmt.Errorf("create chart file: %w", err)
		}
		err = render.WriteErrorChartPNG(f, sc.Camera, cfg.Defaults.ErrorRangesM, render.DefaultChartOptions())
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		log.Printf("error chart written to %s", chartPath)
	}
	return nil
}

// runSweep renders one frame per grid position into dir.
func runSweep(ctx context.Context, sc *scene.Scene, renderer capture.Renderer, cols, rows, dir string) (int, error) {
	var p capture.GridParams
	var err error
	if p.Columns, err = capture.ParseAxis(cols); err != nil {
		return 0, err
	}
	prefix := p.Columns.Param
	if rows != "" {
		r, err := capture.ParseAxis(rows)
		if err != nil {
			return 0, err
		}
		p.Rows = &r
		prefix += "-" + r.Param
	}
	sink, err := capture.NewDirSink(dir, prefix)
	if err != nil {
		return 0, err
	}
	debug.Section("Starting Sweep")
	return capture.NewSequence(sc, renderer, sink).RunGrid(ctx, p)
}

// loadConfig reads the config file. A missing default file falls back to
// built-in defaults; an explicit -config must exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if err := config.ValidateConfigPath(path); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil && !explicit && errors.Is(err, fs.ErrNotExist) {
		log.Printf("%s not found, using built-in defaults", path)
		return config.Default(), nil
	}
	return cfg, err
}

// flagSet reports whether the named flag was given on the command line.
func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func logSummary(st scene.Stats) {
	debug.Summary("Stereo Rig Summary")
	debug.Info("Baseline %.2f m, FOV %.0f°, image %.1f MP",
		st.Camera.BaselineM, st.Camera.FOVDeg, st.Camera.ImageSizePx/1e6)
	debug.Value("First overlap (m)", st.FirstOverlapM)
	debug.Value("Focal length (px)", st.FocalLengthPx)
	debug.Value("Scale (px/m)", st.PixelsPerMeter)
	for _, line := range st.FormatErrorTable() {
		debug.Info("%s", line)
	}
}

// printStats writes the derived quantities in plain text.
func printStats(w io.Writer, st scene.Stats) {
	fmt.Fprintf(w, "Baseline: %s m\n", strconv.FormatFloat(st.Camera.BaselineM, 'f', -1, 64))
	fmt.Fprintf(w, "FOV: %s deg\n", strconv.FormatFloat(st.Camera.FOVDeg, 'f', -1, 64))
	fmt.Fprintf(w, "Image Size: %.1f MP\n", st.Camera.ImageSizePx/1e6)
	fmt.Fprintf(w, "First detection at %.2fm\n", st.FirstOverlapM)
	fmt.Fprintf(w, "Focal length: %.1f px\n\n", st.FocalLengthPx)
	for _, o := range st.Objects {
		fmt.Fprintf(w, "%s\n\n", o.Format())
	}
	for _, line := range st.FormatErrorTable() {
		fmt.Fprintln(w, line)
	}
}

// validateCLIOverrides checks that non-zero CLI overrides are within valid ranges.
// Zero values are ignored (they mean "use config default").
func validateCLIOverrides(fov, baseline, imageSize float64) error {
	if fov != 0 {
		if math.IsNaN(fov) || math.IsInf(fov, 0) || fov <= 0 || fov >= 180 {
			return fmt.Errorf("fov_deg must be between 0 and 180 (exclusive), got %g", fov)
		}
	}
	if baseline != 0 {
		if math.IsNaN(baseline) || math.IsInf(baseline, 0) || baseline <= 0 || baseline > 100 {
			return fmt.Errorf("baseline_m must be in (0, 100], got %g", baseline)
		}
	}
	if imageSize != 0 {
		if math.IsNaN(imageSize) || math.IsInf(imageSize, 0) || imageSize < 1 || imageSize > 1e9 {
			return fmt.Errorf("image_size_px must be between 1 and 1e9, got %g", imageSize)
		}
	}
	return nil
}

// applyOverrides mutates cfg with overrides. Only non-zero override values are applied.
func applyOverrides(cfg *config.Config, overrides cameraOverrides) {
	if overrides.FOVDeg > 0 {
		cfg.Camera.FOVDeg = overrides.FOVDeg
	}
	if overrides.BaselineM > 0 {
		cfg.Camera.BaselineM = overrides.BaselineM
	}
	if overrides.ImageSizePx > 0 {
		cfg.Camera.ImageSizePx = overrides.ImageSizePx
	}
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
