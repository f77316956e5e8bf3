package geometry

import (
	"math"
	"math/rand/v2"
	"testing"
)

const eps = 1e-9

func TestIoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", Box{0, 0, 10, 10}, Box{0, 0, 10, 10}, 1},
		{"disjoint", Box{0, 0, 1, 1}, Box{2, 2, 3, 3}, 0},
		{"touching edge", Box{0, 0, 1, 1}, Box{1, 0, 2, 1}, 0},
		{"half overlap", Box{0, 0, 2, 1}, Box{1, 0, 3, 1}, 1.0 / 3.0},
		{"contained", Box{0, 0, 4, 4}, Box{1, 1, 3, 3}, 4.0 / 16.0},
		{"both degenerate", Box{1, 1, 1, 1}, Box{1, 1, 1, 1}, 0},
		{"inverted vs normal", Box{5, 5, 0, 0}, Box{0, 0, 5, 5}, 0},
		{"zero width line", Box{0, 0, 0, 5}, Box{0, 0, 5, 5}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IoU(tt.a, tt.b)
			if math.Abs(got-tt.want) > eps {
				t.Errorf("IoU(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestIoU_NaNCoordinates(t *testing.T) {
	nan := math.NaN()
	if got := IoU(Box{nan, 0, 1, 1}, Box{0, 0, 1, 1}); got != 0 {
		t.Errorf("IoU with NaN coordinate = %v, want 0", got)
	}
}

func TestIoU_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	randomBox := func() Box {
		x1 := rng.Float64()*100 - 20
		y1 := rng.Float64()*100 - 20
		// Allow some inverted boxes through.
		return Box{x1, y1, x1 + rng.Float64()*60 - 5, y1 + rng.Float64()*60 - 5}
	}

	for i := 0; i < 2000; i++ {
		a, b := randomBox(), randomBox()
		ab := IoU(a, b)
		ba := IoU(b, a)
		if ab < 0 || ab > 1 {
			t.Fatalf("IoU(%v, %v) = %v out of [0,1]", a, b, ab)
		}
		if math.Abs(ab-ba) > eps {
			t.Fatalf("IoU not symmetric: %v vs %v for %v, %v", ab, ba, a, b)
		}
		if a.Area() > 0 {
			if self := IoU(a, a); math.Abs(self-1) > eps {
				t.Fatalf("IoU(a, a) = %v for positive-area %v", self, a)
			}
		}
	}
}

func TestBoxLerp(t *testing.T) {
	a := Box{0, 0, 10, 10}
	b := Box{4, 6, 20, 30}

	if got := BoxLerp(a, b, 0); got != a {
		t.Errorf("BoxLerp(a, b, 0) = %v, want %v", got, a)
	}

	got := BoxLerp(a, b, 1)
	for i := range got {
		if math.Abs(got[i]-b[i]) > eps {
			t.Errorf("BoxLerp(a, b, 1)[%d] = %v, want %v", i, got[i], b[i])
		}
	}

	mid := BoxLerp(a, b, 0.5)
	want := Box{2, 3, 15, 20}
	if mid != want {
		t.Errorf("BoxLerp(a, b, 0.5) = %v, want %v", mid, want)
	}
}

func TestLerp(t *testing.T) {
	if got := Lerp(2, 4, 0.25); got != 2.5 {
		t.Errorf("Lerp(2, 4, 0.25) = %v, want 2.5", got)
	}
	if got := Lerp(-1, 1, 0.5); got != 0 {
		t.Errorf("Lerp(-1, 1, 0.5) = %v, want 0", got)
	}
}

func TestBoxAccessors(t *testing.T) {
	b := Box{1, 2, 4, 8}
	if b.X1() != 1 || b.Y1() != 2 || b.X2() != 4 || b.Y2() != 8 {
		t.Errorf("accessors returned %v %v %v %v", b.X1(), b.Y1(), b.X2(), b.Y2())
	}
	if b.Width() != 3 || b.Height() != 6 || b.Area() != 18 {
		t.Errorf("width/height/area = %v/%v/%v, want 3/6/18", b.Width(), b.Height(), b.Area())
	}
	if !b.Valid() {
		t.Error("expected positive-area box to be valid")
	}
	if (Box{3, 3, 1, 1}).Valid() {
		t.Error("expected inverted box to be invalid")
	}
	if (Box{0, 0, math.Inf(1), 1}).Valid() {
		t.Error("expected infinite box to be invalid")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 1) != 1 || Clamp(-5, 0, 1) != 0 || Clamp(0.5, 0, 1) != 0.5 {
		t.Error("Clamp returned unexpected values")
	}
}
