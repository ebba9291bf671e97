package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
)

// encodeTestPNG renders a small solid-color PNG for upload tests.
func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 0x20, G: 0x80, B: 0x20, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestProcessUploadNormalizesToSquare(t *testing.T) {
	pi := &plantImageService{log: newTestLogger(t), palette: placeholderPalette}

	out, err := pi.ProcessUpload(encodeTestPNG(t, 100, 40))
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	decoded, format, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode processed image: %v", err)
	}
	if format != "png" {
		t.Fatalf("processed format: got %q, want png", format)
	}
	b := decoded.Bounds()
	if b.Dx() != plantImageSize || b.Dy() != plantImageSize {
		t.Fatalf("processed size: got %dx%d, want %dx%d", b.Dx(), b.Dy(), plantImageSize, plantImageSize)
	}
}

func TestProcessUploadRejectsGarbage(t *testing.T) {
	pi := &plantImageService{log: newTestLogger(t), palette: placeholderPalette}
	if _, err := pi.ProcessUpload([]byte("definitely not an image")); err == nil {
		t.Fatalf("garbage bytes must not decode")
	}
}

func TestComputeInitials(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Basil", "B"},
		{"monstera deliciosa", "MD"},
		{"snake plant laurentii", "SP"},
		{"", "?"},
	}
	for _, tc := range cases {
		if got := computeInitials(tc.name); got != tc.want {
			t.Fatalf("computeInitials(%q)=%q, want %q", tc.name, got, tc.want)
		}
	}
}

func newPlantFixture(t *testing.T) PlantService {
	t.Helper()
	db := newTestDB(t)
	log := newTestLogger(t)
	plantRepo := repos.NewPlantRepo(db, log)
	pi := &plantImageService{log: log, palette: placeholderPalette}
	return NewPlantService(db, log, plantRepo, nil, nil, nil, nil, pi)
}

func TestAddProcessesUploadedImage(t *testing.T) {
	svc := newPlantFixture(t)
	ctx := context.Background()

	plant, _, err := svc.Add(ctx, "carmel1998", "Basil", "Ocimum basilicum", encodeTestPNG(t, 64, 64))
	if err != nil {
		t.Fatalf("add with image: %v", err)
	}
	if plant.PlantID == "" {
		t.Fatalf("plant id not assigned")
	}
	if _, err := svc.Get(ctx, "carmel1998", plant.PlantID); err != nil {
		t.Fatalf("get stored plant: %v", err)
	}
}

func TestAddRejectsUndecodableImage(t *testing.T) {
	svc := newPlantFixture(t)
	_, _, err := svc.Add(context.Background(), "carmel1998", "Basil", "", []byte("junk"))
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("undecodable image: got %v, want invalid-argument", err)
	}
}
