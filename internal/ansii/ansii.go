package ansii

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

type ANSI string

const (
	reset       ANSI = "\033[0m"
	plain       ANSI = ""
	red         ANSI = "\033[31m"
	green       ANSI = "\033[32m"
	white       ANSI = "\033[37m"
	dimGreen    ANSI = "\033[2;32m"
	clearScreen ANSI = "\033[2J"
	cursorHome  ANSI = "\033[H"
	hideCursor  ANSI = "\033[?25l"
	showCursor  ANSI = "\033[?25h"

	// Button and drag reporting with SGR coordinates.
	mouseOn  ANSI = "\033[?1002h\033[?1006h"
	mouseOff ANSI = "\033[?1002l\033[?1006l"
)

type Offset struct {
	X int
	Y int
}

type style struct {
	Reset ANSI
}

type color struct {
	Red      ANSI
	Green    ANSI
	DimGreen ANSI
	White    ANSI
}

type screen struct {
	ClearScreen ANSI
	Home        ANSI
	HideCursor  ANSI
	ShowCursor  ANSI
	MouseOn     ANSI
	MouseOff    ANSI
}

type ascii struct {
	Block rune
	Net   rune
	Ball  rune
}

var (
	Styles = style{Reset: reset}
	Colors = color{Red: red, Green: green, DimGreen: dimGreen, White: white}
	Screen = screen{ClearScreen: clearScreen, Home: cursorHome, HideCursor: hideCursor, ShowCursor: showCursor, MouseOn: mouseOn, MouseOff: mouseOff}
	Blocks = ascii{Block: '█', Net: '┊', Ball: '●'}
)

// PlaceCursor moves to the 1-based cell (X, Y).
func (s screen) PlaceCursor(X, Y int) ANSI {
	return ANSI(fmt.Sprintf("\033[%d;%dH", Y, X))
}

func GetTermSize() (width int, height int, err error) {
	width, height, err = term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0, 0, fmt.Errorf("getting terminal size: %w", err)
	}
	return width, height, nil
}

func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func MakeTermRaw() (*term.State, error) {
	return term.MakeRaw(int(os.Stdin.Fd()))
}

func RestoreTerm(prev *term.State) error {
	return term.Restore(int(os.Stdin.Fd()), prev)
}

type cell struct {
	r     rune
	style ANSI
}

// Canvas is an off-screen grid of styled cells. Draw calls clip to the grid, and String
// renders the whole grid as one write.
type Canvas struct {
	Width  int
	Height int
	cells  []cell
}

func NewCanvas(width, height int) *Canvas {
	width, height = max(width, 0), max(height, 0)
	c := &Canvas{Width: width, Height: height, cells: make([]cell, width*height)}
	c.Clear()
	return c
}

func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
}

// Set writes one cell. Coordinates are 0-based; cells off the canvas are dropped.
func (c *Canvas) Set(x, y int, r rune, style ANSI) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return
	}
	c.cells[y*c.Width+x] = cell{r: r, style: style}
}

// At returns the rune at (x, y), or 0 off the canvas.
func (c *Canvas) At(x, y int) rune {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0
	}
	return c.cells[y*c.Width+x].r
}

// Row returns line y as plain text.
func (c *Canvas) Row(y int) string {
	if y < 0 || y >= c.Height {
		return ""
	}
	var b strings.Builder
	for _, cl := range c.cells[y*c.Width : (y+1)*c.Width] {
		b.WriteRune(cl.r)
	}
	return b.String()
}

// FillRect fills a box of dimensions `height` and `width` whose top left cell is `offset`.
func (c *Canvas) FillRect(offset Offset, height int, width int, r rune, style ANSI) {
	for hIdx := range height {
		for wIdx := range width {
			c.Set(offset.X+wIdx, offset.Y+hIdx, r, style)
		}
	}
}

func (c *Canvas) DrawPixelStyle(offset Offset, r rune, style ANSI) {
	c.Set(offset.X, offset.Y, r, style)
}

// DrawText writes s left to right starting at offset. Text past the right edge is clipped.
func (c *Canvas) DrawText(offset Offset, s string, style ANSI) {
	x := offset.X
	for _, r := range s {
		c.Set(x, offset.Y, r, style)
		x++
	}
}

// String renders the canvas from the home position, switching styles only when they change.
func (c *Canvas) String() string {
	var b strings.Builder
	b.WriteString(string(Screen.Home))
	for y := 0; y < c.Height; y++ {
		b.WriteString(string(Screen.PlaceCursor(1, y+1)))
		current := plain
		for _, cl := range c.cells[y*c.Width : (y+1)*c.Width] {
			if cl.style != current {
				b.WriteString(string(Styles.Reset))
				b.WriteString(string(cl.style))
				current = cl.style
			}
			b.WriteRune(cl.r)
		}
		if current != plain {
			b.WriteString(string(Styles.Reset))
		}
	}
	return b.String()
}
