package services

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"os"
	"strings"
	"unicode"

	_ "image/jpeg"
	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/sharkteam/plantcloud-backend/internal/logger"
)

type PlantImageService interface {
	// GeneratePlaceholder renders a PNG tile with the plant's initials, used
	// when a plant is added without a photo.
	GeneratePlaceholder(name string) ([]byte, error)
	// ProcessUpload center-crops and resizes an uploaded photo to a square PNG.
	ProcessUpload(raw []byte) ([]byte, error)
}

type plantImageService struct {
	log      *logger.Logger
	fontFace font.Face
	palette  []color.NRGBA
}

const plantImageSize = 512

var placeholderPalette = []color.NRGBA{
	{R: 0x2E, G: 0x7D, B: 0x32, A: 0xFF},
	{R: 0x38, G: 0x8E, B: 0x3C, A: 0xFF},
	{R: 0x55, G: 0x8B, B: 0x2F, A: 0xFF},
	{R: 0x00, G: 0x69, B: 0x5C, A: 0xFF},
	{R: 0x33, G: 0x69, B: 0x1E, A: 0xFF},
}

func NewPlantImageService(log *logger.Logger) (PlantImageService, error) {
	serviceLog := log.With("service", "PlantImageService")
	fontPath := os.Getenv("PLACEHOLDER_FONT")
	if strings.TrimSpace(fontPath) == "" {
		return nil, fmt.Errorf("env var PLACEHOLDER_FONT is empty")
	}
	face, err := loadFontFace(fontPath, 206)
	if err != nil {
		return nil, fmt.Errorf("load placeholder font: %w", err)
	}
	return &plantImageService{
		log:      serviceLog,
		fontFace: face,
		palette:  placeholderPalette,
	}, nil
}

func (ps *plantImageService) GeneratePlaceholder(name string) ([]byte, error) {
	dc := gg.NewContext(plantImageSize, plantImageSize)

	bg := ps.palette[colorIndexFor(name, len(ps.palette))]
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, plantImageSize, plantImageSize)
	dc.Fill()

	initials := computeInitials(name)
	dc.SetFontFace(ps.fontFace)
	tw, th := dc.MeasureString(initials)
	cx, cy := float64(plantImageSize)/2, float64(plantImageSize)/2
	dc.SetColor(color.White)
	dc.DrawString(initials, cx-(tw/2), cy+(th/2)-10)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode placeholder png: %w", err)
	}
	return buf.Bytes(), nil
}

func (ps *plantImageService) ProcessUpload(raw []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	// Center-crop to square
	b := img.Bounds()
	w := b.Dx()
	h := b.Dy()
	side := w
	if h < w {
		side = h
	}
	x0 := b.Min.X + (w-side)/2
	y0 := b.Min.Y + (h-side)/2

	cropRect := image.Rect(0, 0, side, side)
	cropped := image.NewRGBA(cropRect)
	draw.Draw(cropped, cropRect, img, image.Point{X: x0, Y: y0}, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, plantImageSize, plantImageSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	dc := gg.NewContext(plantImageSize, plantImageSize)
	dc.DrawImage(dst, 0, 0)
	if err := dc.EncodePNG(&out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return out.Bytes(), nil
}

func loadFontFace(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parse TTF: %w", err)
	}
	face := truetype.NewFace(parsedFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	return face, nil
}

func computeInitials(name string) string {
	fields := strings.Fields(name)
	var sb strings.Builder
	for i, f := range fields {
		if i >= 2 {
			break
		}
		for _, r := range f {
			sb.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	if sb.Len() == 0 {
		return "?"
	}
	return sb.String()
}

func colorIndexFor(name string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(name)))
	return int(h.Sum32() % uint32(n))
}
