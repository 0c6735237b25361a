// ABOUTME: Local inference server supervisor: auto-start on demand, health wait, idle reaping, graceful stop
// ABOUTME: Concurrent start requests collapse into one spawn via singleflight

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/singleflight"

	"github.com/mauromedda/pi-complete-go/internal/log"
)

var (
	// ErrNoCommand is returned when a start is needed but no command is configured.
	ErrNoCommand = errors.New("server: no command configured")
	// ErrExited is returned when the spawned server exits before becoming healthy.
	ErrExited = errors.New("server: process exited before becoming healthy")
)

const (
	defaultStartTimeout = 60 * time.Second
	defaultStopGrace    = 5 * time.Second
	healthTimeout       = 2 * time.Second
)

// Config configures a Supervisor.
type Config struct {
	// Command is the argv of the server process, e.g. llama-server flags.
	Command []string
	// BaseURL is polled at /health.
	BaseURL string
	// StartTimeout bounds the wait for a spawned server to become healthy.
	StartTimeout time.Duration
	// IdleTimeout stops a spawned server after this long without activity.
	// Zero disables reaping.
	IdleTimeout time.Duration
	// StopGrace is how long Stop waits after SIGTERM before killing.
	StopGrace time.Duration
	// Output receives the child's stdout and stderr; discarded when nil.
	Output io.Writer
}

// Status describes the supervised process.
type Status struct {
	Running bool      `json:"running"`
	PID     int       `json:"pid,omitempty"`
	Started time.Time `json:"started,omitzero"`
	Spawns  int64     `json:"spawns"`
	Idle    string    `json:"idle"`
}

// Supervisor owns at most one child server process.
type Supervisor struct {
	cfg       Config
	keepalive *Keepalive
	client    *http.Client
	group     singleflight.Group
	now       func() time.Time

	mu      sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	started time.Time

	spawns atomic.Int64
}

// NewSupervisor creates a supervisor. ka may be nil; one is created.
func NewSupervisor(cfg Config, ka *Keepalive) *Supervisor {
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = defaultStartTimeout
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	if ka == nil {
		ka = NewKeepalive(nil)
	}
	return &Supervisor{
		cfg:       cfg,
		keepalive: ka,
		client:    &http.Client{Timeout: healthTimeout},
		now:       time.Now,
	}
}

// Keepalive returns the heartbeat the supervisor reaps against.
func (s *Supervisor) Keepalive() *Keepalive {
	return s.keepalive
}

// EnsureRunning returns once the endpoint is healthy, spawning the server
// if needed. Concurrent callers share one start attempt.
func (s *Supervisor) EnsureRunning(ctx context.Context) error {
	if err := Healthy(ctx, s.client, s.cfg.BaseURL); err == nil {
		return nil
	}
	// The shared start must not die with the first caller's context.
	ch := s.group.DoChan("start", func() (any, error) {
		return nil, s.start(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnTransportError is the engine hook: it starts the server in the
// background and logs the outcome.
func (s *Supervisor) OnTransportError(cause error) {
	if len(s.cfg.Command) == 0 {
		return
	}
	log.Info("server: endpoint unreachable (%v), starting %s", cause, s.cfg.Command[0])
	go func() {
		if err := s.EnsureRunning(context.Background()); err != nil {
			log.Warn("server: auto-start failed: %v", err)
		}
	}()
}

func (s *Supervisor) start(ctx context.Context) error {
	if len(s.cfg.Command) == 0 {
		return ErrNoCommand
	}

	done, err := s.spawn()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.StartTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		select {
		case <-done:
			return struct{}{}, backoff.Permanent(ErrExited)
		default:
		}
		return struct{}{}, Healthy(ctx, s.client, s.cfg.BaseURL)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(s.cfg.StartTimeout),
	)
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", s.cfg.BaseURL, err)
	}
	s.keepalive.Touch()
	log.Info("server: %s healthy", s.cfg.BaseURL)
	return nil
}

// spawn starts the process unless one is already running and returns its exit channel.
func (s *Supervisor) spawn() (<-chan struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return s.done, nil
	}

	cmd := exec.Command(s.cfg.Command[0], s.cfg.Command[1:]...)
	out := s.cfg.Output
	if out == nil {
		out = io.Discard
	}
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", s.cfg.Command[0], err)
	}

	done := make(chan struct{})
	s.cmd, s.done, s.started = cmd, done, s.now()
	s.spawns.Add(1)
	log.Info("server: spawned %s (pid %d)", s.cfg.Command[0], cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		log.Debug("server: pid %d exited: %v", cmd.Process.Pid, err)
		s.mu.Lock()
		if s.cmd == cmd {
			s.cmd, s.done = nil, nil
		}
		s.mu.Unlock()
		close(done)
	}()
	return done, nil
}

// Running reports whether a spawned process is alive.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Stop terminates the spawned process: SIGTERM, then a kill after the grace period.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	cmd, done := s.cmd, s.done
	s.mu.Unlock()
	if cmd == nil {
		return nil
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		_ = cmd.Process.Kill()
	}
	timer := time.NewTimer(s.cfg.StopGrace)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		log.Warn("server: pid %d ignored SIGTERM, killing", cmd.Process.Pid)
		_ = cmd.Process.Kill()
	case <-ctx.Done():
		_ = cmd.Process.Kill()
	}
	<-done
	return ctx.Err()
}

// ReapIfIdle stops the process when it has been idle for IdleTimeout as of now.
func (s *Supervisor) ReapIfIdle(ctx context.Context, now time.Time) bool {
	if s.cfg.IdleTimeout <= 0 || !s.Running() {
		return false
	}
	idle := s.keepalive.IdleFor(now)
	if idle < s.cfg.IdleTimeout {
		return false
	}
	log.Info("server: idle for %v, stopping", idle.Round(time.Second))
	if err := s.Stop(ctx); err != nil {
		log.Warn("server: stop: %v", err)
	}
	return true
}

// Run reaps idle processes until ctx ends, then stops the process.
func (s *Supervisor) Run(ctx context.Context) error {
	interval := s.cfg.IdleTimeout / 4
	if interval <= 0 || interval > 30*time.Second {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			stopCtx, cancel := context.WithTimeout(context.Background(), s.cfg.StopGrace+time.Second)
			defer cancel()
			_ = s.Stop(stopCtx)
			return ctx.Err()
		case <-ticker.C:
			s.ReapIfIdle(ctx, s.now())
		}
	}
}

// Status reports the supervised process state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Spawns: s.spawns.Load(), Idle: s.keepalive.IdleFor(s.now()).Round(time.Second).String()}
	if s.cmd != nil {
		st.Running = true
		st.PID = s.cmd.Process.Pid
		st.Started = s.started
	}
	return st
}
