package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/RangeViz/internal/config"
	"github.com/cjeanneret/RangeViz/internal/debug"
	"github.com/cjeanneret/RangeViz/internal/logic/scene"
)

var (
	// ErrStopped is returned when the loop is not running.
	ErrStopped = errors.New("render loop is not running")
	// ErrNoFrame is returned before the first frame is rendered.
	ErrNoFrame = errors.New("no frame rendered yet")
)

// Frame is one rendered frame and the stats it was drawn from.
type Frame struct {
	Seq        uint64
	Image      *image.RGBA
	Stats      scene.Stats
	RenderedAt time.Time
}

// Loop redraws the scene at a fixed rate. It is the only goroutine that
// touches the scene: parameter changes are queued and applied between
// frames, so input handling and rendering never overlap.
type Loop struct {
	scene    *scene.Scene
	renderer *Renderer
	interval time.Duration

	requests chan func(*scene.Scene)
	started  atomic.Bool
	stopped  chan struct{}

	// OnChange, if set, is called from the loop goroutine with the stats
	// of the first frame rendered after a parameter change.
	OnChange func(scene.Stats)

	mu      sync.RWMutex
	latest  Frame
	pngSeq  uint64
	pngData []byte
}

// NewLoop creates a loop over s. interval is the time between two frames.
func NewLoop(s *scene.Scene, r *Renderer, interval time.Duration) *Loop {
	return &Loop{
		scene:    s,
		renderer: r,
		interval: interval,
		requests: make(chan func(*scene.Scene)),
		stopped:  make(chan struct{}),
	}
}

// Run renders frames until ctx is cancelled. A loop runs at most once.
func (l *Loop) Run(ctx context.Context) error {
	if l.interval <= 0 {
		return fmt.Errorf("frame interval must be > 0, got %s", l.interval)
	}
	if !l.started.CompareAndSwap(false, true) {
		return errors.New("render loop already started")
	}
	defer close(l.stopped)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.renderFrame()
	changed := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-l.requests:
			req(l.scene)
			changed = true
		case <-ticker.C:
			f := l.renderFrame()
			if changed {
				changed = false
				if l.OnChange != nil {
					l.OnChange(f.Stats)
				}
			}
		}
	}
}

func (l *Loop) renderFrame() Frame {
	start := time.Now()
	img := l.renderer.Render(l.scene)
	stats := l.scene.Snapshot()

	l.mu.Lock()
	f := Frame{Seq: l.latest.Seq + 1, Image: img, Stats: stats, RenderedAt: start}
	l.latest = f
	l.mu.Unlock()

	debug.Frame(f.Seq, time.Since(start), stats.PixelsPerMeter)
	return f
}

// do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) do(ctx context.Context, fn func(*scene.Scene)) error {
	if !l.started.Load() {
		return ErrStopped
	}
	done := make(chan struct{})
	req := func(s *scene.Scene) {
		defer close(done)
		fn(s)
	}
	select {
	case l.requests <- req:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Submit applies a parameter change and returns the resulting update.
func (l *Loop) Submit(ctx context.Context, ev scene.ParamChanged) (scene.Update, error) {
	var (
		u        scene.Update
		applyErr error
	)
	err := l.do(ctx, func(s *scene.Scene) {
		u, applyErr = s.Apply(ev)
		if applyErr == nil {
			debug.Param(ev.Param, u.Raw, u.Stored)
		}
	})
	if err != nil {
		return scene.Update{}, err
	}
	return u, applyErr
}

// Reset replaces the scene parameters and object icons with cfg, e.g.
// after a config reload. Nothing changes if the icons fail to load.
func (l *Loop) Reset(ctx context.Context, cfg *config.Config) error {
	sprites, err := LoadSprites(cfg.Objects)
	if err != nil {
		return err
	}
	var resetErr error
	err = l.do(ctx, func(s *scene.Scene) {
		resetErr = s.Reset(cfg)
		if resetErr == nil {
			l.renderer.setSprites(sprites)
		}
	})
	if err != nil {
		return err
	}
	return resetErr
}

// Controls returns the current slider definitions.
func (l *Loop) Controls(ctx context.Context) ([]scene.Control, error) {
	var controls []scene.Control
	err := l.do(ctx, func(s *scene.Scene) {
		controls = s.Controls()
	})
	return controls, err
}

// Latest returns the most recent frame. Seq is 0 before the first frame.
func (l *Loop) Latest() Frame {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latest
}

// LatestPNG returns the most recent frame encoded as PNG. Encoding happens
// at most once per frame.
func (l *Loop) LatestPNG() ([]byte, uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.latest.Image == nil {
		return nil, 0, ErrNoFrame
	}
	if l.pngSeq != l.latest.Seq {
		var buf bytes.Buffer
		if err := png.Encode(&buf, l.latest.Image); err != nil {
			return nil, 0, fmt.Errorf("encode frame: %w", err)
		}
		l.pngData = buf.Bytes()
		l.pngSeq = l.latest.Seq
	}
	return l.pngData, l.pngSeq, nil
}
