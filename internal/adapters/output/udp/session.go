package udp

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"lumina-core/internal/domain/model"
	"lumina-core/internal/domain/stream"
	"lumina-core/internal/metrics"
)

const (
	// DefaultFrameRate targets 60Hz; the loop measures real elapsed
	// time per tick instead of assuming the period is achieved.
	DefaultFrameRate = 60

	dialTimeout = 3 * time.Second
)

// LEDCountFunc answers how many LEDs the target strip has; 0 means
// unknown. The session falls back to its configured default — an
// unanswered info query must not prevent streaming.
type LEDCountFunc func(ctx context.Context) int

// Session streams framed pixel data to one device over UDP at a fixed
// rate. While active it is the sole writer of the device's animated
// state; the controller service suppresses JSON color writes for the
// duration. Frames are fire-and-forget: no fragmentation, no ack, no
// retransmission. A lost frame is superseded by the next one.
type Session struct {
	addr            string
	gen             *stream.Generator
	ledCount        LEDCountFunc
	defaultLEDCount int
	frameRate       int
	rgbw            bool

	mu     sync.Mutex
	conn   net.Conn
	codec  *stream.Codec
	stopCh chan struct{}
	done   chan struct{}
}

type Option func(*Session)

func WithFrameRate(fps int) Option {
	return func(s *Session) { s.frameRate = fps }
}

func WithRGBW(rgbw bool) Option {
	return func(s *Session) { s.rgbw = rgbw }
}

// WithLEDCountQuery wires an info-style lookup used once at Start.
func WithLEDCountQuery(fn LEDCountFunc) Option {
	return func(s *Session) { s.ledCount = fn }
}

// NewSession targets host:port (port 4048 by convention when addr has
// no port) with the given frame generator.
func NewSession(addr string, gen *stream.Generator, defaultLEDCount int, opts ...Option) *Session {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = fmt.Sprintf("%s:%d", addr, stream.DefaultPort)
	}
	s := &Session{
		addr:            addr,
		gen:             gen,
		defaultLEDCount: defaultLEDCount,
		frameRate:       DefaultFrameRate,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start binds the socket and launches the frame loop. A session that is
// already running is stopped first; there are never two concurrent
// streams to one device.
func (s *Session) Start(ctx context.Context) error {
	s.Stop()

	n := s.defaultLEDCount
	if s.ledCount != nil {
		if queried := s.ledCount(ctx); queried > 0 {
			n = queried
		}
	}
	if n <= 0 {
		return fmt.Errorf("stream: no LED count available for %s", s.addr)
	}

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "udp", s.addr)
	if err != nil {
		return fmt.Errorf("stream: dial %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.codec = &stream.Codec{}
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	stopCh, done := s.stopCh, s.done
	s.mu.Unlock()

	go s.loop(conn, n, stopCh, done)
	return nil
}

// loop owns the socket for the session's lifetime and releases it on
// every exit path.
func (s *Session) loop(conn net.Conn, ledCount int, stopCh, done chan struct{}) {
	defer close(done)
	defer conn.Close()

	period := time.Second / time.Duration(s.frameRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			// Wall-clock delta, not the nominal period: animation
			// speed must survive scheduler jitter.
			dt := now.Sub(last)
			last = now
			s.gen.Advance(dt)
			s.SendFrame(s.gen.Frame(ledCount))
		}
	}
}

// Stop ends the session and releases the socket. Safe to call twice or
// on a session that never started.
func (s *Session) Stop() {
	s.mu.Lock()
	stopCh, done := s.stopCh, s.done
	s.stopCh, s.done = nil, nil
	s.conn = nil
	s.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

// Active reports whether a frame loop currently owns the device.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

// SendFrame packs and emits one datagram. The sequence counter advances
// on every call even when the sink drops the frame, so receivers can
// treat sequence gaps as diagnostic.
func (s *Session) SendFrame(pixels []model.Color) bool {
	s.mu.Lock()
	codec, conn := s.codec, s.conn
	if codec == nil {
		// No session yet; keep a standalone counter so preview/no-op
		// use still advances sequence numbers.
		s.codec = &stream.Codec{}
		codec = s.codec
	}
	pkt := codec.PackFrame(pixels, s.rgbw, 0)
	s.mu.Unlock()

	if conn == nil {
		metrics.FrameDropped()
		return false
	}
	if _, err := conn.Write(pkt); err != nil {
		log.Printf("stream: send frame: %v", err)
		metrics.FrameDropped()
		return false
	}
	metrics.FrameSent()
	return true
}
