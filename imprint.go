package pageverify

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// WithURLBanner draws the URL in a white banner below the image so saved
// captures remain attributable to their target.
func (img Image) WithURLBanner(rawURL string) (Image, error) {
	decoded, err := png.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	const padding = 20
	const borderSize = 1

	w := decoded.Bounds().Dx()
	h := decoded.Bounds().Dy() + padding*2 + borderSize
	dc := gg.NewContext(w, h)

	dc.DrawImage(decoded, 0, 0)

	yLine := float64(decoded.Bounds().Dy())
	dc.SetColor(color.Black)
	dc.DrawLine(0, yLine, float64(w), yLine)
	dc.SetLineWidth(float64(borderSize))
	dc.Stroke()
	dc.SetColor(color.White)
	dc.DrawRectangle(0, yLine, float64(w), float64(padding*2))
	dc.Fill()
	dc.SetColor(color.Black)

	face, err := bannerFont()
	if err != nil {
		return nil, err
	}
	dc.SetFontFace(face)
	dc.DrawStringAnchored(rawURL, float64(w)/2, yLine+float64(padding), 0.5, 0.3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

func bannerFont() (font.Face, error) {
	ttFont, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse banner font: %w", err)
	}

	return truetype.NewFace(ttFont, &truetype.Options{
		Size: 14,
	}), nil
}
