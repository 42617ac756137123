// Package session drives one game from menu to teardown.
//
// A Controller moves through Idle -> Hosting|Connecting -> Connected -> Playing -> Ended and
// back to Idle. While connected, a single loop goroutine owns the game state and multiplexes
// the frame ticker, the video ticker, inbound packets and local input, so the state needs no
// lock. Whatever ends the session, the same shutdown routine stops the timers, releases the
// camera and closes the connection.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"golang.org/x/exp/rand"

	"neonpong/internal/config"
	"neonpong/internal/media"
	"neonpong/internal/netwrk"
	"neonpong/internal/pong"
	"neonpong/internal/statesync"
)

type State int

const (
	Idle State = iota
	Hosting
	Connecting
	Connected
	Playing
	Ended
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Hosting:
		return "hosting"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Playing:
		return "playing"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Status struct {
	State   State
	Role    statesync.Role
	Code    string
	Message string
}

// Frame is what the renderer draws after each tick.
type Frame struct {
	Role        statesync.Role
	State       pong.GameState
	LocalVideo  []byte
	RemoteVideo []byte
}

// Transport is the connection library: netwrk.Dialer or netwrk.MemoryNetwork.
type Transport interface {
	Listen(ctx context.Context, localID string) (*netwrk.Conn, error)
	Connect(ctx context.Context, remoteID string) (*netwrk.Conn, error)
}

type Observer interface {
	OnStatus(Status)
	OnFrame(Frame)
}

type Options struct {
	Namespace    string
	Pong         pong.Config
	TickRate     int
	VideoFPS     int
	VideoQuality int
	StartDelay   time.Duration
	Constraints  media.Constraints
	// Seed drives session codes and serves. Zero seeds from the clock.
	Seed uint64
}

// OptionsFromConfig maps the loaded configuration onto session options.
func OptionsFromConfig(c config.Configuration) Options {
	p := pong.DefaultConfig()
	if c.BounceMultiplier > 0 {
		p.BounceMultiplier = c.BounceMultiplier
	}
	p.MaxSpeed = c.MaxSpeed
	return Options{
		Namespace:    c.Namespace,
		Pong:         p,
		TickRate:     c.TickRate,
		VideoFPS:     c.VideoFPS,
		VideoQuality: c.VideoQuality,
		StartDelay:   time.Duration(c.StartDelayMs) * time.Millisecond,
		Constraints:  media.DefaultConstraints(),
	}
}

var codePattern = regexp.MustCompile(`^[0-9]{4}$`)

// ValidCode reports whether code is a four digit session code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

type Controller struct {
	opts      Options
	transport Transport
	camera    media.Camera
	observer  Observer

	mu     sync.Mutex
	status Status
	active *session
	rng    *rand.Rand
}

func NewController(t Transport, cam media.Camera, obs Observer, opts Options) *Controller {
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	if opts.VideoFPS <= 0 {
		opts.VideoFPS = 15
	}
	if opts.VideoQuality <= 0 {
		opts.VideoQuality = 30
	}
	if opts.Pong == (pong.Config{}) {
		opts.Pong = pong.DefaultConfig()
	}
	if opts.Constraints == (media.Constraints{}) {
		opts.Constraints = media.DefaultConstraints()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	if obs == nil {
		obs = nopObserver{}
	}
	return &Controller{
		opts:      opts,
		transport: t,
		camera:    cam,
		observer:  obs,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// CreateGame hosts a session. It blocks until the session ends and returns why; the
// controller is back in Idle when it returns.
func (c *Controller) CreateGame(ctx context.Context) error {
	if err := c.begin(Hosting, statesync.Host); err != nil {
		return err
	}
	c.update(func(s *Status) { s.Message = "Starting camera..." })

	stream, err := c.camera.Open(ctx, c.opts.Constraints)
	if err != nil {
		return c.finish(fmt.Errorf("%w: %w", ErrMediaAccessDenied, err))
	}

	code := c.newCode()
	c.update(func(s *Status) {
		s.Code = code
		s.Message = "Waiting for friend..."
	})
	slog.Info("hosting game", slog.String("code", code))

	conn, err := c.transport.Listen(ctx, c.opts.Namespace+code)
	if err != nil {
		stream.Close()
		return c.finish(connectionError(err))
	}

	engine := pong.NewEngine(c.opts.Pong, rand.NewSource(c.seed()))
	return c.finish(c.play(ctx, statesync.NewHost(engine), conn, stream))
}

// JoinGame connects to the host advertising code. Like CreateGame it blocks for the whole
// session.
func (c *Controller) JoinGame(ctx context.Context, code string) error {
	if !ValidCode(code) {
		c.update(func(s *Status) { s.Message = statusMessage(ErrInvalidCode, "client") })
		return ErrInvalidCode
	}
	if err := c.begin(Connecting, statesync.Client); err != nil {
		return err
	}
	c.update(func(s *Status) {
		s.Code = code
		s.Message = "Starting camera..."
	})

	stream, err := c.camera.Open(ctx, c.opts.Constraints)
	if err != nil {
		return c.finish(fmt.Errorf("%w: %w", ErrMediaAccessDenied, err))
	}

	c.update(func(s *Status) { s.Message = "Connecting..." })
	conn, err := c.transport.Connect(ctx, c.opts.Namespace+code)
	if err != nil {
		stream.Close()
		return c.finish(connectionError(err))
	}

	return c.finish(c.play(ctx, statesync.NewClient(c.opts.Pong), conn, stream))
}

// SetPaddle hands the input bridge's paddle target to the running session.
func (c *Controller) SetPaddle(y float64) {
	if s := c.current(); s != nil {
		s.setPaddle(y)
	}
}

// RefreshMedia releases the camera and acquires it again. If the camera cannot be reopened the
// session ends like any other media failure.
func (c *Controller) RefreshMedia(ctx context.Context) error {
	s := c.current()
	if s == nil {
		return ErrNotPlaying
	}
	if !s.swapStream(nil) {
		return ErrNotPlaying
	}

	stream, err := c.camera.Open(ctx, c.opts.Constraints)
	if err != nil {
		slog.Info("camera refresh failed", slog.Any("error", err))
		err = fmt.Errorf("%w: %w: %w", errCameraRefresh, ErrMediaAccessDenied, err)
		s.fail(err)
		return err
	}
	if !s.swapStream(stream) {
		stream.Close()
		return ErrNotPlaying
	}
	return nil
}

// Leave ends the running session from this side.
func (c *Controller) Leave() {
	if s := c.current(); s != nil {
		s.requestLeave()
	}
}

func (c *Controller) play(ctx context.Context, sy *statesync.Sync, conn *netwrk.Conn, stream media.Stream) error {
	s := &session{
		game:       sy,
		conn:       conn,
		stream:     stream,
		observer:   c.observer,
		tick:       time.Second / time.Duration(c.opts.TickRate),
		videoEvery: time.Second / time.Duration(c.opts.VideoFPS),
		startDelay: c.opts.StartDelay,
		quality:    c.opts.VideoQuality,
		onPlaying:  func() { c.update(func(st *Status) { st.State = Playing; st.Message = "" }) },
		input:      make(chan float64),
		streams:    make(chan media.Stream),
		abort:      make(chan error),
		leave:      make(chan struct{}),
		done:       make(chan struct{}),
	}

	c.mu.Lock()
	c.active = s
	c.mu.Unlock()
	c.update(func(st *Status) {
		st.State = Connected
		st.Message = "Friend connected! Starting game..."
	})

	err := s.run(ctx)

	c.mu.Lock()
	c.active = nil
	c.mu.Unlock()
	return err
}

func (c *Controller) begin(state State, role statesync.Role) error {
	c.mu.Lock()
	if c.status.State != Idle || c.active != nil {
		c.mu.Unlock()
		return ErrBusy
	}
	c.status = Status{State: state, Role: role}
	st := c.status
	c.mu.Unlock()

	slog.Debug("session state", slog.Any("state", state), slog.Any("role", role))
	c.observer.OnStatus(st)
	return nil
}

// finish reports how the attempt ended and returns the controller to Idle.
func (c *Controller) finish(err error) error {
	c.mu.Lock()
	role := c.status.Role
	reached := c.status.State == Connected || c.status.State == Playing
	c.mu.Unlock()

	msg := statusMessage(err, role.String())
	if reached {
		c.update(func(s *Status) {
			s.State = Ended
			s.Message = msg
		})
	}
	c.update(func(s *Status) {
		s.State = Idle
		s.Code = ""
		s.Message = msg
	})
	if err != nil {
		slog.Info("session ended", slog.Any("role", role), slog.Any("error", err))
	}
	return err
}

func (c *Controller) update(fn func(*Status)) {
	c.mu.Lock()
	prev := c.status.State
	fn(&c.status)
	st := c.status
	c.mu.Unlock()

	if st.State != prev {
		slog.Debug("session state", slog.Any("from", prev), slog.Any("to", st.State))
	}
	c.observer.OnStatus(st)
}

func (c *Controller) current() *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// newCode draws a session code uniformly from [1000, 9999].
func (c *Controller) newCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%d", 1000+c.rng.Intn(9000))
}

func (c *Controller) seed() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rng.Uint64()
}

func connectionError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrConnection, err)
}

type nopObserver struct{}

func (nopObserver) OnStatus(Status) {}
func (nopObserver) OnFrame(Frame)   {}
