package vision

import (
	"math"
	"testing"
)

func heatTrack(x, y float64) *Track {
	return &Track{BBox: BBox{X1: x - 5, Y1: y - 5, X2: x + 5, Y2: y + 5}}
}

func TestHeatmap_DepositAtCenter(t *testing.T) {
	h := NewHeatmap(HeatmapConfig{Width: 100, Height: 100, Decay: 1.0, Sigma: 2})
	h.Update([]*Track{heatTrack(50, 50)})

	field := h.Field()
	center := field[50*100+50]
	if center != 1.0 {
		t.Errorf("expected centre cell saturated at 1.0, got %v", center)
	}

	// Intensity falls off with distance from the deposit.
	near := field[50*100+52]
	far := field[50*100+55]
	if !(center >= near && near > far) {
		t.Errorf("expected monotonic falloff, got center=%v near=%v far=%v", center, near, far)
	}
}

func TestHeatmap_Bounds(t *testing.T) {
	h := NewHeatmap(HeatmapConfig{Width: 50, Height: 50, Decay: 0.995, Sigma: 5})

	// Hammer one spot for many cycles: every cell stays in [0, 1].
	for i := 0; i < 200; i++ {
		h.Update([]*Track{heatTrack(25, 25), heatTrack(27, 25)})
	}
	for i, v := range h.Field() {
		if v < 0 || v > 1 {
			t.Fatalf("cell %d out of range: %v", i, v)
		}
	}
}

func TestHeatmap_Decay(t *testing.T) {
	h := NewHeatmap(HeatmapConfig{Width: 20, Height: 20, Decay: 0.5, Sigma: 1})
	h.Update([]*Track{heatTrack(10, 10)})
	before := h.Field()[10*20+10]

	// A cycle with no tracks only decays.
	h.Update(nil)
	after := h.Field()[10*20+10]

	want := before * 0.5
	if math.Abs(after-want) > 1e-12 {
		t.Errorf("expected %v after one decay cycle, got %v", want, after)
	}
}

func TestHeatmap_OutOfBoundsIgnored(t *testing.T) {
	h := NewHeatmap(HeatmapConfig{Width: 20, Height: 20, Decay: 1.0, Sigma: 2})
	h.Update([]*Track{heatTrack(500, 500), heatTrack(-10, 5)})

	for i, v := range h.Field() {
		if v != 0 {
			t.Fatalf("expected empty field after out-of-bounds deposits, cell %d = %v", i, v)
		}
	}
}

func TestHeatmap_EdgeDepositTruncated(t *testing.T) {
	// A deposit near the corner must not index outside the field.
	h := NewHeatmap(HeatmapConfig{Width: 20, Height: 20, Decay: 1.0, Sigma: 3})
	h.Update([]*Track{heatTrack(0, 0), heatTrack(19, 19)})

	field := h.Field()
	if field[0] != 1.0 {
		t.Errorf("expected corner cell saturated, got %v", field[0])
	}
	if field[19*20+19] != 1.0 {
		t.Errorf("expected far corner cell saturated, got %v", field[19*20+19])
	}
}

func TestHeatmap_Reset(t *testing.T) {
	h := NewHeatmap(HeatmapConfig{Width: 20, Height: 20, Decay: 1.0, Sigma: 2})
	h.Update([]*Track{heatTrack(10, 10)})
	h.Reset()

	for i, v := range h.Field() {
		if v != 0 {
			t.Fatalf("expected zeroed field after reset, cell %d = %v", i, v)
		}
	}
}

func TestHeatmap_FieldIsCopy(t *testing.T) {
	h := NewHeatmap(HeatmapConfig{Width: 10, Height: 10, Decay: 1.0, Sigma: 1})
	h.Update([]*Track{heatTrack(5, 5)})

	field := h.Field()
	field[5*10+5] = -42

	if h.Field()[5*10+5] == -42 {
		t.Error("mutating the returned field leaked into the accumulator")
	}
}
