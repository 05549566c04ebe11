package display

import (
	"fmt"
	"image/color"
	"sync"

	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freesans"

	"github.com/sweeney/grinder/internal/logic"
)

// Renderer shows one line of text.
type Renderer interface {
	Render(text string, font logic.Font) error
	Close() error
}

var white = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// Screen renders centered text on an SSD1306.
type Screen struct {
	mu  sync.Mutex
	dev *SSD1306
}

// NewScreen wraps a configured SSD1306.
func NewScreen(dev *SSD1306) *Screen {
	return &Screen{dev: dev}
}

func fontFor(f logic.Font) (tinyfont.Fonter, int16) {
	if f == logic.FontSmall {
		return &freesans.Regular9pt7b, 22
	}
	return &freesans.Bold18pt7b, 29
}

// Render clears the frame, draws text and flushes it. An empty string blanks
// the panel.
func (s *Screen) Render(text string, font logic.Font) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dev.ClearBuffer()
	if text != "" {
		f, baseline := fontFor(font)
		_, w := tinyfont.LineWidth(f, text)
		x := (int16(Width) - int16(w)) / 2
		if x < 0 {
			x = 0
		}
		tinyfont.WriteLine(s.dev, f, x, baseline, text, white)
	}
	if err := s.dev.Display(); err != nil {
		return fmt.Errorf("render %q: %w", text, err)
	}
	return nil
}

// Close blanks and switches off the panel.
func (s *Screen) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dev.ClearBuffer()
	if err := s.dev.Display(); err != nil {
		return err
	}
	return s.dev.Off()
}

// Discard is a Renderer that draws nothing.
type Discard struct{}

func (Discard) Render(string, logic.Font) error { return nil }
func (Discard) Close() error                    { return nil }
