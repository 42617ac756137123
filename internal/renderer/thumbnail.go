package renderer

import (
	"bytes"
	"fmt"
	"image/color"
	"image/jpeg"
)

// Darkest to brightest.
const ramp = " .:-=+*#%@"

// Thumbnail decodes a JPEG frame and renders it as cols x rows characters of luminance art.
func Thumbnail(data []byte, cols, rows int) ([]string, error) {
	if cols <= 0 || rows <= 0 {
		return nil, nil
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding video frame: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("decoding video frame: empty image")
	}

	lines := make([]string, rows)
	line := make([]byte, cols)
	for r := 0; r < rows; r++ {
		y0 := bounds.Min.Y + r*bounds.Dy()/rows
		y1 := max(bounds.Min.Y+(r+1)*bounds.Dy()/rows, y0+1)
		for c := 0; c < cols; c++ {
			x0 := bounds.Min.X + c*bounds.Dx()/cols
			x1 := max(bounds.Min.X+(c+1)*bounds.Dx()/cols, x0+1)

			// Sample at most a 4x4 grid per cell.
			stepX, stepY := max((x1-x0)/4, 1), max((y1-y0)/4, 1)
			var sum, n uint64
			for y := y0; y < y1; y += stepY {
				for x := x0; x < x1; x += stepX {
					sum += uint64(color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y)
					n++
				}
			}
			line[c] = ramp[(int(sum/n)*(len(ramp)-1)+0x7fff)/0xffff]
		}
		lines[r] = string(line)
	}
	return lines, nil
}

// thumbCache keeps the last rendering so an unchanged frame is decoded once.
type thumbCache struct {
	src   []byte
	cols  int
	rows  int
	lines []string
}

func (t *thumbCache) get(data []byte, cols, rows int) []string {
	if len(data) == 0 {
		return nil
	}
	if t.cols == cols && t.rows == rows && bytes.Equal(t.src, data) {
		return t.lines
	}
	lines, err := Thumbnail(data, cols, rows)
	if err != nil {
		return t.lines
	}
	t.src, t.cols, t.rows, t.lines = data, cols, rows, lines
	return lines
}
