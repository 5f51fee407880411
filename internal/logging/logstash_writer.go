package logging

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var errCoolingDown = errors.New("logstash: waiting before reconnect")

// LogstashSink is a zapcore.WriteSyncer that forwards encoded entries to a
// Logstash TCP input over one long-lived connection. Entries written while
// Logstash is unreachable are counted and dropped; the caller never blocks
// longer than the dial or write timeout.
type LogstashSink struct {
	addr         string
	dialTimeout  time.Duration
	writeTimeout time.Duration
	cooldown     time.Duration
	dial         func(network, addr string, timeout time.Duration) (net.Conn, error)
	now          func() time.Time

	mu         sync.Mutex
	conn       net.Conn
	retryAfter time.Time
	closed     bool

	dropped atomic.Int64
}

type SinkOption func(*LogstashSink)

func WithDialTimeout(d time.Duration) SinkOption {
	return func(s *LogstashSink) { s.dialTimeout = d }
}

func WithWriteTimeout(d time.Duration) SinkOption {
	return func(s *LogstashSink) { s.writeTimeout = d }
}

// WithCooldown sets how long the sink waits after a failed dial or write
// before trying to reconnect. Zero retries on every write.
func WithCooldown(d time.Duration) SinkOption {
	return func(s *LogstashSink) { s.cooldown = d }
}

func NewLogstashSink(addr string, opts ...SinkOption) (*LogstashSink, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("logstash: empty address")
	}
	s := &LogstashSink{
		addr:         addr,
		dialTimeout:  2 * time.Second,
		writeTimeout: time.Second,
		cooldown:     5 * time.Second,
		dial:         net.DialTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dropped reports how many entries were discarded because Logstash was down.
func (s *LogstashSink) Dropped() int64 {
	return s.dropped.Load()
}

func (s *LogstashSink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	line := make([]byte, len(p), len(p)+1)
	copy(line, p)
	if line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if err := s.connectLocked(); err != nil {
		s.dropped.Add(1)
		return len(p), nil
	}
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(s.now().Add(s.writeTimeout))
	}
	if _, err := s.conn.Write(line); err != nil {
		_ = s.disconnectLocked()
		s.retryAfter = s.now().Add(s.cooldown)
		s.dropped.Add(1)
	}
	return len(p), nil
}

// Sync is a no-op: every Write is flushed to the socket immediately.
func (s *LogstashSink) Sync() error {
	return nil
}

func (s *LogstashSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.disconnectLocked()
}

func (s *LogstashSink) connectLocked() error {
	if s.conn != nil {
		return nil
	}
	if now := s.now(); !s.retryAfter.IsZero() && now.Before(s.retryAfter) {
		return errCoolingDown
	}
	conn, err := s.dial("tcp", s.addr, s.dialTimeout)
	if err != nil {
		s.retryAfter = s.now().Add(s.cooldown)
		return err
	}
	s.conn = conn
	s.retryAfter = time.Time{}
	return nil
}

func (s *LogstashSink) disconnectLocked() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
