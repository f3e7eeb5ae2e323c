package capture

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cjeanneret/RangeViz/internal/config"
	"github.com/cjeanneret/RangeViz/internal/logic/scene"
)

// mockSink records Save calls.
type mockSink struct {
	mu    sync.Mutex
	shots []Shot
	err   error
}

func (m *mockSink) Save(shot Shot) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.shots = append(m.shots, shot)
	return "mock", nil
}

func (m *mockSink) shotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.shots)
}

// stubRenderer returns a blank frame and counts calls.
type stubRenderer struct {
	calls int
}

func (r *stubRenderer) Render(*scene.Scene) *image.RGBA {
	r.calls++
	return image.NewRGBA(image.Rect(0, 0, 8, 8))
}

func newTestSequence(t *testing.T, sink Sink) (*Sequence, *scene.Scene) {
	t.Helper()
	s, err := scene.New(config.Default())
	if err != nil {
		t.Fatalf("scene.New: %v", err)
	}
	return NewSequence(s, &stubRenderer{}, sink), s
}

// ---------- Axis ----------

func TestParseAxis(t *testing.T) {
	a, err := ParseAxis("fov=15:135:10")
	if err != nil {
		t.Fatalf("ParseAxis: %v", err)
	}
	want := Axis{Param: "fov", From: 15, To: 135, Step: 10}
	if a != want {
		t.Errorf("ParseAxis = %+v, want %+v", a, want)
	}
}

func TestParseAxis_Invalid(t *testing.T) {
	cases := []string{
		"",
		"fov",
		"=1:2:1",
		"fov=1:2",
		"fov=1:2:3:4",
		"fov=a:2:1",
		"fov=1:2:0",
		"fov=1:2:-1",
		"fov=0:1e9:0.001",
	}
	for _, input := range cases {
		t.Run(input, func(t *testing.T) {
			if _, err := ParseAxis(input); err == nil {
				t.Errorf("ParseAxis(%q) should fail, got nil", input)
			}
		})
	}
}

func TestAxisValues(t *testing.T) {
	cases := []struct {
		name string
		a    Axis
		want []float64
	}{
		{"ascending", Axis{From: 1, To: 3, Step: 1}, []float64{1, 2, 3}},
		{"descending", Axis{From: 3, To: 1, Step: 1}, []float64{3, 2, 1}},
		{"single", Axis{From: 2, To: 2, Step: 1}, []float64{2}},
		{"partial_last_step", Axis{From: 0, To: 1, Step: 0.4}, []float64{0, 0.4, 0.8}},
		{"fractional_inclusive", Axis{From: 0.1, To: 0.3, Step: 0.1}, []float64{0.1, 0.2, 0.30000000000000004}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.a.Values()
			if err != nil {
				t.Fatalf("Values: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("Values = %v, want %v", got, tc.want)
			}
			for i := range got {
				if math.Abs(got[i]-tc.want[i]) > 1e-12 {
					t.Errorf("Values[%d] = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestAxisValues_NaN(t *testing.T) {
	if _, err := (Axis{From: math.NaN(), To: 1, Step: 1}).Values(); err == nil {
		t.Error("expected error for NaN bound, got nil")
	}
}

// ---------- RunGrid ----------

func TestRunGrid_SingleRow(t *testing.T) {
	sink := &mockSink{}
	seq, s := newTestSequence(t, sink)

	n, err := seq.RunGrid(context.Background(), GridParams{
		Columns: Axis{Param: scene.ParamFOV, From: 30, To: 90, Step: 30},
	})
	if err != nil {
		t.Fatalf("RunGrid: %v", err)
	}
	if n != 3 || sink.shotCount() != 3 {
		t.Errorf("shots = %d (saved %d), want 3", n, sink.shotCount())
	}
	if s.Camera.FOVDeg != 90 {
		t.Errorf("scene FOV after sweep = %v, want 90", s.Camera.FOVDeg)
	}
	for i, shot := range sink.shots {
		if len(shot.Values) != 1 {
			t.Fatalf("shot %d has %d values, want 1", i, len(shot.Values))
		}
		if want := 30 + 30*float64(i); shot.Values[0].Stored != want {
			t.Errorf("shot %d fov = %v, want %v", i, shot.Values[0].Stored, want)
		}
	}
}

func TestRunGrid_2x3_Serpentine(t *testing.T) {
	sink := &mockSink{}
	seq, _ := newTestSequence(t, sink)

	n, err := seq.RunGrid(context.Background(), GridParams{
		Columns: Axis{Param: scene.ParamBaseline, From: 1, To: 2, Step: 1},
		Rows:    &Axis{Param: scene.RangeParam(1), From: 1, To: 3, Step: 1},
	})
	if err != nil {
		t.Fatalf("RunGrid: %v", err)
	}
	if n != 6 {
		t.Fatalf("shots = %d, want 6 (2x3)", n)
	}

	wantRows := []int{0, 1, 2, 2, 1, 0}
	for i, shot := range sink.shots {
		if shot.Index != i {
			t.Errorf("shot %d index = %d", i, shot.Index)
		}
		if shot.Row != wantRows[i] {
			t.Errorf("shot %d row = %d, want %d", i, shot.Row, wantRows[i])
		}
		// range sliders are squared
		wantRange := math.Pow(float64(shot.Row+1), 2)
		if got := shot.Values[1].Stored; got != wantRange {
			t.Errorf("shot %d range = %v, want %v", i, got, wantRange)
		}
	}
}

func TestRunGrid_ClampsToControlBounds(t *testing.T) {
	sink := &mockSink{}
	seq, s := newTestSequence(t, sink)

	_, err := seq.RunGrid(context.Background(), GridParams{
		Columns: Axis{Param: scene.ParamFOV, From: 100, To: 200, Step: 100},
	})
	if err != nil {
		t.Fatalf("RunGrid: %v", err)
	}
	if s.Camera.FOVDeg != scene.FOVMax {
		t.Errorf("FOV = %v, want clamped %v", s.Camera.FOVDeg, scene.FOVMax)
	}
}

func TestRunGrid_UnknownParam(t *testing.T) {
	sink := &mockSink{}
	seq, _ := newTestSequence(t, sink)

	_, err := seq.RunGrid(context.Background(), GridParams{
		Columns: Axis{Param: "zoom", From: 1, To: 2, Step: 1},
	})
	if err == nil {
		t.Error("expected error for unknown param, got nil")
	}
	if sink.shotCount() != 0 {
		t.Errorf("shots = %d, want 0", sink.shotCount())
	}
}

func TestRunGrid_TooManyShots(t *testing.T) {
	seq, _ := newTestSequence(t, &mockSink{})

	_, err := seq.RunGrid(context.Background(), GridParams{
		Columns: Axis{Param: scene.ParamFOV, From: 15, To: 135, Step: 0.1},
		Rows:    &Axis{Param: scene.ParamBaseline, From: 0.1, To: 3, Step: 0.1},
	})
	if err == nil {
		t.Error("expected error above MaxShots, got nil")
	}
}

func TestRunGrid_SinkError(t *testing.T) {
	sink := &mockSink{err: errors.New("disk full")}
	seq, _ := newTestSequence(t, sink)

	n, err := seq.RunGrid(context.Background(), GridParams{
		Columns: Axis{Param: scene.ParamFOV, From: 30, To: 90, Step: 30},
	})
	if err == nil {
		t.Fatal("expected sink error, got nil")
	}
	if n != 0 {
		t.Errorf("shots = %d, want 0", n)
	}
}

func TestRunGrid_ContextCancellation(t *testing.T) {
	sink := &mockSink{}
	seq, _ := newTestSequence(t, sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := seq.RunGrid(ctx, GridParams{
		Columns: Axis{Param: scene.ParamFOV, From: 15, To: 135, Step: 1},
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if sink.shotCount() != 0 {
		t.Errorf("shots = %d, want 0 after cancellation", sink.shotCount())
	}
}

// ---------- DirSink ----------

func TestDirSink_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sweep")
	sink, err := NewDirSink(dir, "range.1")
	if err != nil {
		t.Fatalf("NewDirSink: %v", err)
	}

	path, err := sink.Save(Shot{Index: 7, Image: image.NewRGBA(image.Rect(0, 0, 4, 4))})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if want := filepath.Join(dir, "range_1_0007.png"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("frame file missing: %v", err)
	}
}

func TestDirSink_DefaultPrefix(t *testing.T) {
	sink, err := NewDirSink(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewDirSink: %v", err)
	}
	path, err := sink.Save(Shot{Image: image.NewRGBA(image.Rect(0, 0, 1, 1))})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(path) != "frame_0000.png" {
		t.Errorf("file name = %q, want frame_0000.png", filepath.Base(path))
	}
}
