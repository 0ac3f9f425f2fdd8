package imagegen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"shopflow/internal/domain"
)

const (
	canvasSize   = 1024
	maxPromptLen = 1000
	maxTextWidth = 900
	maxLines     = 15
	lineSpacing  = 60
	shadowOffset = 3
)

// pastel gradient pairs, one picked per image
var gradients = [][2]color.RGBA{
	{{R: 135, G: 206, B: 250, A: 255}, {R: 255, G: 182, B: 193, A: 255}},
	{{R: 255, G: 218, B: 185, A: 255}, {R: 255, G: 192, B: 203, A: 255}},
	{{R: 176, G: 224, B: 230, A: 255}, {R: 152, G: 251, B: 152, A: 255}},
	{{R: 255, G: 250, B: 205, A: 255}, {R: 255, G: 228, B: 196, A: 255}},
}

// Generator renders placeholder product images: a gradient backdrop with
// the prompt text centered on it. It stands in for a real image model and
// keeps the API contract (PNG bytes for a text prompt) stable.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns PNG bytes for the prompt. An empty or oversized prompt
// is a validation error.
func (g *Generator) Generate(prompt string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", domain.ErrValidation)
	}
	if len(prompt) > maxPromptLen {
		return nil, fmt.Errorf("%w: prompt longer than %d characters", domain.ErrValidation, maxPromptLen)
	}

	img := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))

	pair := gradients[rand.IntN(len(gradients))]
	fillGradient(img, pair[0], pair[1])

	drawPrompt(img, prompt)

	drawRing(img, 100, 100, 50)
	drawRing(img, 924, 924, 50)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func fillGradient(img *image.RGBA, top, bottom color.RGBA) {
	for y := 0; y < canvasSize; y++ {
		c := color.RGBA{
			R: lerp(top.R, bottom.R, y),
			G: lerp(top.G, bottom.G, y),
			B: lerp(top.B, bottom.B, y),
			A: 255,
		}
		for x := 0; x < canvasSize; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func lerp(a, b uint8, y int) uint8 {
	return uint8(int(a) + (int(b)-int(a))*y/canvasSize)
}

func drawPrompt(img *image.RGBA, prompt string) {
	face := basicfont.Face7x13
	lines := wrapText(prompt, face)
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	yStart := canvasSize/2 - 112 - (len(lines)*lineSpacing)/2
	for i, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		x := (canvasSize - width) / 2
		y := yStart + i*lineSpacing

		drawString(img, face, line, x+shadowOffset, y+shadowOffset, color.RGBA{A: 128})
		drawString(img, face, line, x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	}
}

func drawString(img *image.RGBA, face font.Face, s string, x, y int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func wrapText(prompt string, face font.Face) []string {
	var lines []string
	var current string

	for _, word := range strings.Fields(prompt) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if font.MeasureString(face, candidate).Ceil() < maxTextWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}

	return lines
}

// drawRing outlines a circle of the given radius, three pixels thick.
func drawRing(img *image.RGBA, cx, cy, r int) {
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outer := (r + 2) * (r + 2)
	inner := (r - 2) * (r - 2)

	for y := cy - r - 2; y <= cy+r+2; y++ {
		for x := cx - r - 2; x <= cx+r+2; x++ {
			dx, dy := x-cx, y-cy
			d := dx*dx + dy*dy
			if d >= inner && d <= outer {
				img.SetRGBA(x, y, white)
			}
		}
	}
}
