package renderer

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"neonpong/internal/ansii"
	"neonpong/internal/pong"
	"neonpong/internal/session"
	"neonpong/internal/statesync"
)

var (
	targetFps            float64 = 30.0
	millisecondTimeFrame         = time.Duration(float64(time.Second) / targetFps)
)

const help = "w/s ↑/↓ or mouse: move · r: refresh camera · q: quit"

// Renderer draws sessions to a terminal. It implements session.Observer.
type Renderer struct {
	out  io.Writer
	size func() (int, int, error)
	cfg  pong.Config

	mu       sync.Mutex
	status   session.Status
	frame    session.Frame
	hasFrame bool
	lastDraw time.Time
	local    thumbCache
	remote   thumbCache
	layout   layout
}

// layout is how the terminal is split between the field, the video strip and the status line.
type layout struct {
	cols       int
	fieldRows  int
	videoRows  int
	statusLine int
}

func New(out io.Writer, cfg pong.Config, size func() (int, int, error)) *Renderer {
	return &Renderer{out: out, cfg: cfg, size: size}
}

func (r *Renderer) OnStatus(st session.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = st
	if st.State != session.Playing {
		r.hasFrame = false
	}
	r.drawLocked()
}

// OnFrame is called every tick; drawing is capped at targetFps.
func (r *Renderer) OnFrame(f session.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = f
	r.hasFrame = true
	if time.Since(r.lastDraw) < millisecondTimeFrame {
		return
	}
	r.drawLocked()
}

// FieldRows is the number of terminal rows the field occupied on the last draw. Pointer rows
// are mapped against it.
func (r *Renderer) FieldRows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.layout.fieldRows
}

func (r *Renderer) drawLocked() {
	width, height, err := r.size()
	if err != nil {
		slog.Debug("skipping draw", slog.Any("error", err))
		return
	}
	c := ansii.NewCanvas(width, height)
	r.compose(c)
	r.lastDraw = time.Now()
	if _, err := io.WriteString(r.out, c.String()); err != nil {
		slog.Debug("writing frame", slog.Any("error", err))
	}
}

func (r *Renderer) compose(c *ansii.Canvas) {
	r.layout = newLayout(c.Width, c.Height)
	if r.hasFrame {
		r.drawField(c, r.frame.State)
		r.drawVideo(c)
	} else {
		r.drawMenu(c)
	}
	r.drawStatus(c)
}

func newLayout(cols, rows int) layout {
	l := layout{cols: cols, statusLine: rows - 1}
	if rows >= 24 {
		l.videoRows = min(10, rows/4)
	}
	l.fieldRows = max(rows-1-l.videoRows, 0)
	return l
}

func (r *Renderer) col(x float64) int {
	return int(x * float64(r.layout.cols) / r.cfg.Width)
}

func (r *Renderer) row(y float64) int {
	return int(y * float64(r.layout.fieldRows) / r.cfg.Height)
}

func (r *Renderer) drawField(c *ansii.Canvas, st pong.GameState) {
	rows := r.layout.fieldRows
	if rows == 0 {
		return
	}

	net := r.col(r.cfg.Width / 2)
	for y := 0; y < rows; y++ {
		if y%3 != 2 {
			c.Set(net, y, ansii.Blocks.Net, ansii.Colors.DimGreen)
		}
	}

	pw := max(r.col(r.cfg.PaddleWidth), 1)
	r.drawPaddle(c, 0, pw, st.Paddle1.Y)
	r.drawPaddle(c, r.layout.cols-pw, pw, st.Paddle2.Y)

	c.DrawText(ansii.Offset{X: r.col(r.cfg.Width / 4), Y: min(1, rows-1)}, strconv.Itoa(st.Paddle1.Score), ansii.Colors.Green)
	c.DrawText(ansii.Offset{X: r.col(r.cfg.Width * 3 / 4), Y: min(1, rows-1)}, strconv.Itoa(st.Paddle2.Score), ansii.Colors.Green)

	bx, by := r.col(st.Ball.X), r.row(st.Ball.Y)
	if by < rows {
		c.DrawPixelStyle(ansii.Offset{X: bx, Y: by}, ansii.Blocks.Ball, ansii.Colors.White)
	}
}

func (r *Renderer) drawPaddle(c *ansii.Canvas, x, width int, y float64) {
	top := r.row(y)
	bottom := max(r.row(y+r.cfg.PaddleHeight), top+1)
	bottom = min(bottom, r.layout.fieldRows)
	c.FillRect(ansii.Offset{X: x, Y: top}, bottom-top, width, ansii.Blocks.Block, ansii.Colors.Green)
}

// drawVideo puts our own camera under our paddle and the friend's under theirs.
func (r *Renderer) drawVideo(c *ansii.Canvas) {
	vr := r.layout.videoRows
	if vr < 2 {
		return
	}
	rows := vr - 1
	// Terminal cells are about twice as tall as wide; keep 4:3.
	cols := min(rows*8/3, r.layout.cols/2-1)
	top := r.layout.fieldRows

	localAt := ansii.Offset{X: 0, Y: top}
	remoteAt := ansii.Offset{X: r.layout.cols - cols, Y: top}
	if r.frame.Role == statesync.Client {
		localAt, remoteAt = remoteAt, localAt
	}
	r.drawThumb(c, &r.local, r.frame.LocalVideo, localAt, cols, rows, "you")
	r.drawThumb(c, &r.remote, r.frame.RemoteVideo, remoteAt, cols, rows, "friend")
}

func (r *Renderer) drawThumb(c *ansii.Canvas, cache *thumbCache, data []byte, at ansii.Offset, cols, rows int, label string) {
	c.DrawText(at, label, ansii.Colors.DimGreen)
	lines := cache.get(data, cols, rows)
	if lines == nil {
		c.DrawText(ansii.Offset{X: at.X, Y: at.Y + 1}, "no video", ansii.Colors.DimGreen)
		return
	}
	for i, line := range lines {
		c.DrawText(ansii.Offset{X: at.X, Y: at.Y + 1 + i}, line, ansii.Colors.Green)
	}
}

func (r *Renderer) drawMenu(c *ansii.Canvas) {
	mid := c.Height / 2
	center := func(y int, s string, style ansii.ANSI) {
		x := max((c.Width-len([]rune(s)))/2, 0)
		c.DrawText(ansii.Offset{X: x, Y: y}, s, style)
	}
	center(mid-3, "N E O N   P O N G", ansii.Colors.Green)
	if r.status.Code != "" {
		center(mid-1, "Session code", ansii.Colors.DimGreen)
		center(mid, r.status.Code, ansii.Colors.White)
	}
	center(mid+2, r.status.Message, ansii.Colors.Green)
}

func (r *Renderer) drawStatus(c *ansii.Canvas) {
	if r.layout.statusLine < 0 {
		return
	}
	line := fmt.Sprintf("[%s] %s", r.status.State, r.status.Message)
	if r.status.Code != "" {
		line += "  code " + r.status.Code
	}
	c.DrawText(ansii.Offset{X: 0, Y: r.layout.statusLine}, line, ansii.Colors.Green)
	if x := c.Width - len([]rune(help)); x > len([]rune(line))+1 {
		c.DrawText(ansii.Offset{X: x, Y: r.layout.statusLine}, help, ansii.Colors.DimGreen)
	}
}
