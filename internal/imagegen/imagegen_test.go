package imagegen

import (
	"bytes"
	"errors"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/font/basicfont"

	"shopflow/internal/domain"
)

func TestGenerate(t *testing.T) {
	g := NewGenerator()

	t.Run("returns a 1024x1024 png", func(t *testing.T) {
		data, err := g.Generate("букет красных роз")
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}

		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("output is not valid png: %v", err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != 1024 || bounds.Dy() != 1024 {
			t.Fatalf("expected 1024x1024, got %dx%d", bounds.Dx(), bounds.Dy())
		}
	})

	t.Run("rejects empty prompt", func(t *testing.T) {
		for _, prompt := range []string{"", "   ", "\n\t"} {
			if _, err := g.Generate(prompt); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation for %q, got %v", prompt, err)
			}
		}
	})

	t.Run("rejects oversized prompt", func(t *testing.T) {
		long := strings.Repeat("a", 1001)
		if _, err := g.Generate(long); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("accepts prompt at limit", func(t *testing.T) {
		limit := strings.Repeat("a", 1000)
		if _, err := g.Generate(limit); err != nil {
			t.Fatalf("expected 1000-char prompt to pass, got %v", err)
		}
	})

	t.Run("long prompt wraps without failing", func(t *testing.T) {
		prompt := strings.TrimSpace(strings.Repeat("long flower description ", 40))
		if _, err := g.Generate(prompt); err != nil {
			t.Fatalf("Generate failed on wrapped prompt: %v", err)
		}
	})
}

func TestWrapText(t *testing.T) {
	face := basicfont.Face7x13

	lines := wrapText("one two three", face)
	if len(lines) != 1 || lines[0] != "one two three" {
		t.Fatalf("expected single line, got %v", lines)
	}

	long := strings.Repeat("word ", 100)
	lines = wrapText(strings.TrimSpace(long), face)
	if len(lines) < 2 {
		t.Fatalf("expected long text to wrap, got %d lines", len(lines))
	}
	for _, line := range lines {
		if line == "" {
			t.Fatal("unexpected empty line")
		}
	}
}
