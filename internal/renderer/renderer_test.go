package renderer

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
	"testing"

	"neonpong/internal/ansii"
	"neonpong/internal/pong"
	"neonpong/internal/session"
	"neonpong/internal/statesync"
)

func fixedSize(w, h int) func() (int, int, error) {
	return func() (int, int, error) { return w, h, nil }
}

func TestRenderer_MenuShowsCodeAndMessage(t *testing.T) {
	var out bytes.Buffer
	r := New(&out, pong.DefaultConfig(), fixedSize(80, 24))

	r.OnStatus(session.Status{State: session.Hosting, Code: "4821", Message: "Waiting for friend..."})

	s := out.String()
	for _, want := range []string{"N E O N", "4821", "Waiting for friend...", "[hosting]"} {
		if !strings.Contains(s, want) {
			t.Fatalf("expected %q in output", want)
		}
	}
}

func TestRenderer_FieldPlacement(t *testing.T) {
	cfg := pong.DefaultConfig()
	r := New(&bytes.Buffer{}, cfg, fixedSize(80, 24))
	r.status = session.Status{State: session.Playing}
	r.hasFrame = true

	st := cfg.NewGameState()
	st.Ball.X, st.Ball.Y = 400, 300
	st.Paddle1.Y = 0
	st.Paddle2.Y = 500
	st.Paddle1.Score = 3
	st.Paddle2.Score = 7
	r.frame = session.Frame{Role: statesync.Host, State: st}

	c := ansii.NewCanvas(80, 24)
	r.compose(c)

	rows := r.layout.fieldRows
	if rows != 17 {
		t.Fatalf("expected 17 field rows on a 24 row terminal, got %d", rows)
	}
	if c.At(0, 0) != ansii.Blocks.Block {
		t.Fatalf("expected left paddle at the top")
	}
	if c.At(0, rows-1) == ansii.Blocks.Block {
		t.Fatalf("expected left paddle to stop short of the bottom")
	}
	if c.At(79, rows-1) != ansii.Blocks.Block {
		t.Fatalf("expected right paddle at the bottom")
	}
	if got := c.At(40, 8); got != ansii.Blocks.Ball {
		t.Fatalf("expected ball at the centre cell, got %q", got)
	}
	if !strings.Contains(c.Row(1), "3") || !strings.Contains(c.Row(1), "7") {
		t.Fatalf("expected both scores on the second row, got %q", c.Row(1))
	}
	if !strings.Contains(c.Row(23), "[playing]") {
		t.Fatalf("expected status line at the bottom, got %q", c.Row(23))
	}
}

func TestRenderer_VideoSides(t *testing.T) {
	cfg := pong.DefaultConfig()
	r := New(&bytes.Buffer{}, cfg, fixedSize(80, 24))
	r.status = session.Status{State: session.Playing}
	r.hasFrame = true
	r.frame = session.Frame{Role: statesync.Client, State: cfg.NewGameState(), RemoteVideo: solidJPEG(t, color.White)}

	c := ansii.NewCanvas(80, 24)
	r.compose(c)

	top := r.layout.fieldRows
	if !strings.HasPrefix(c.Row(top), "friend") {
		t.Fatalf("expected the host's video on the left for a client, got %q", c.Row(top))
	}
	if !strings.HasPrefix(c.Row(top+1), "@@@@") {
		t.Fatalf("expected a bright thumbnail, got %q", c.Row(top+1))
	}
	if !strings.Contains(c.Row(top+1), "no video") {
		t.Fatalf("expected a placeholder for the missing local video, got %q", c.Row(top+1))
	}
}

func TestThumbnail_Luminance(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 16))
	for y := 0; y < 16; y++ {
		for x := 32; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatal(err)
	}

	lines, err := Thumbnail(buf.Bytes(), 4, 2)
	if err != nil {
		t.Fatalf("thumbnail: %v", err)
	}
	if len(lines) != 2 || len(lines[0]) != 4 {
		t.Fatalf("expected 4x2 thumbnail, got %q", lines)
	}
	for _, l := range lines {
		if l[0] != ' ' || l[3] != '@' {
			t.Fatalf("expected dark left and bright right, got %q", l)
		}
	}
}

func TestThumbnail_RejectsGarbage(t *testing.T) {
	if _, err := Thumbnail([]byte("not a jpeg"), 4, 2); err == nil {
		t.Fatalf("expected a decode error")
	}
}

func solidJPEG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for y := 0; y < 24; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
