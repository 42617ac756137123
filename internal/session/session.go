package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"neonpong/internal/media"
	"neonpong/internal/netwrk"
	"neonpong/internal/packet"
	"neonpong/internal/statesync"
)

// session is the context of one connected game. Everything except the channels is owned by
// the goroutine in run.
type session struct {
	game     *statesync.Sync
	conn     *netwrk.Conn
	stream   media.Stream
	observer Observer

	tick       time.Duration
	videoEvery time.Duration
	startDelay time.Duration
	quality    int
	onPlaying  func()

	input   chan float64
	streams chan media.Stream
	abort   chan error
	leave   chan struct{}
	done    chan struct{}

	startTimer  *time.Timer
	frameTicker *time.Ticker
	videoTicker *time.Ticker

	localVideo  []byte
	remoteVideo []byte

	leaveOnce    sync.Once
	shutdownOnce sync.Once
}

// run applies packets from the moment the channel is open, starts sending video at once and
// starts the frame loop after the grace delay. It returns nil when the local side left.
func (s *session) run(ctx context.Context) error {
	defer s.shutdown()

	s.videoTicker = time.NewTicker(s.videoEvery)
	s.startTimer = time.NewTimer(s.startDelay)
	var frames <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.leave:
			return nil

		case err := <-s.abort:
			return err

		case <-s.conn.Closed():
			return fmt.Errorf("%w: %v", ErrPeerDisconnected, s.conn.Err())

		case <-s.startTimer.C:
			s.frameTicker = time.NewTicker(s.tick)
			frames = s.frameTicker.C
			slog.Info("game started", slog.Any("role", s.game.Role))
			s.onPlaying()

		case <-frames:
			s.step()

		case <-s.videoTicker.C:
			s.sendVideo()

		case p := <-s.conn.Incoming():
			s.apply(p)

		case y := <-s.input:
			s.game.SetLocalPaddle(y)

		case st := <-s.streams:
			if s.stream != nil {
				s.stream.Close()
			}
			s.stream = st
		}
	}
}

func (s *session) step() {
	p := s.game.Tick()
	if err := s.conn.Send(p); err != nil {
		slog.Debug("state send failed", slog.Any("error", err))
	}
	s.observer.OnFrame(Frame{
		Role:        s.game.Role,
		State:       s.game.State,
		LocalVideo:  s.localVideo,
		RemoteVideo: s.remoteVideo,
	})
}

func (s *session) apply(p packet.Packet) {
	if !s.game.Apply(p) {
		return
	}
	if vf, ok := p.(packet.VideoFrame); ok {
		img, err := vf.Image()
		if err != nil {
			slog.Debug("undecodable video frame", slog.Any("error", err))
			return
		}
		s.remoteVideo = img
	}
}

func (s *session) sendVideo() {
	if s.stream == nil || !s.conn.Open() {
		return
	}
	b, err := s.stream.Snapshot(s.quality)
	if err != nil {
		slog.Debug("snapshot failed", slog.Any("error", err))
		return
	}
	s.localVideo = b
	if err := s.conn.Send(packet.NewVideoFrame(b)); err != nil {
		slog.Debug("video send failed", slog.Any("error", err))
	}
}

// shutdown is the single teardown path: timers, camera, connection.
func (s *session) shutdown() {
	s.shutdownOnce.Do(func() {
		if s.startTimer != nil {
			s.startTimer.Stop()
			s.startTimer = nil
		}
		if s.frameTicker != nil {
			s.frameTicker.Stop()
			s.frameTicker = nil
		}
		if s.videoTicker != nil {
			s.videoTicker.Stop()
			s.videoTicker = nil
		}
		if s.stream != nil {
			if err := s.stream.Close(); err != nil {
				slog.Debug("releasing camera", slog.Any("error", err))
			}
			s.stream = nil
		}
		s.conn.Close()
		close(s.done)
	})
}

func (s *session) setPaddle(y float64) {
	select {
	case s.input <- y:
	case <-s.done:
	}
}

// swapStream replaces the camera stream, closing the old one. It reports false once the
// session is over.
func (s *session) swapStream(st media.Stream) bool {
	select {
	case s.streams <- st:
		return true
	case <-s.done:
		return false
	}
}

// fail ends the session with err from outside the loop.
func (s *session) fail(err error) {
	select {
	case s.abort <- err:
	case <-s.done:
	}
}

func (s *session) requestLeave() {
	s.leaveOnce.Do(func() { close(s.leave) })
}
