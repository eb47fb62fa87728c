package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const (
	defaultIconSize = 64
	maxIconSize     = 512
	iconCacheSize   = 256
)

// SetIconSource looks up set metadata and downloads the icon SVG
type SetIconSource interface {
	GetSet(ctx context.Context, code string) (*ScryfallSet, error)
	FetchBytes(ctx context.Context, assetURL string) ([]byte, error)
}

// SetIconService serves set symbols as PNG, rendered once per code and size
type SetIconService struct {
	source SetIconSource
	cache  *lru.Cache[string, []byte]
	log    logrus.FieldLogger
}

func NewSetIconService(source SetIconSource, log logrus.FieldLogger) *SetIconService {
	cache, _ := lru.New[string, []byte](iconCacheSize)
	return &SetIconService{source: source, cache: cache, log: log}
}

// SetIconPNG returns the set symbol rendered as a square PNG. Size 0 means
// the default size.
func (s *SetIconService) SetIconPNG(ctx context.Context, setCode string, size int) ([]byte, error) {
	code := strings.ToLower(strings.TrimSpace(setCode))
	if code == "" {
		return nil, invalid("code", "set code is required")
	}
	if size == 0 {
		size = defaultIconSize
	}
	if size < 1 || size > maxIconSize {
		return nil, invalid("size", "must be between 1 and %d", maxIconSize)
	}

	key := fmt.Sprintf("%s:%d", code, size)
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	set, err := s.source.GetSet(ctx, code)
	if err != nil {
		return nil, err
	}
	if set.IconSVGURI == "" {
		return nil, notFound("set icon")
	}
	svg, err := s.source.FetchBytes(ctx, set.IconSVGURI)
	if err != nil {
		return nil, err
	}
	data, err := svgToPNG(svg, size)
	if err != nil {
		s.log.WithError(err).WithField("set", code).Warn("Set icons: failed to rasterize icon")
		return nil, fmt.Errorf("rasterize set icon: %w", err)
	}

	s.cache.Add(key, data)
	return data, nil
}

// svgToPNG renders SVG data centered in a transparent size x size square,
// keeping the aspect ratio
func svgToPNG(svgData []byte, size int) ([]byte, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(svgData))
	if err != nil {
		return nil, err
	}

	w, h := icon.ViewBox.W, icon.ViewBox.H
	if w <= 0 || h <= 0 {
		w, h = float64(size), float64(size)
	}
	scale := float64(size) / max(w, h)
	outW, outH := int(w*scale), int(h*scale)
	icon.SetTarget(float64((size-outW)/2), float64((size-outH)/2), float64(outW), float64(outH))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
