package wifi

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/ble2mqtt/internal/process"
)

// Polling constants.
const (
	// defaultPollInterval is how often the interface state is sampled.
	defaultPollInterval = 2 * time.Second

	// defaultOperstateRoot is where the kernel exposes interface state.
	defaultOperstateRoot = "/sys/class/net"

	// defaultBinary is the wpa_supplicant executable path.
	defaultBinary = "/sbin/wpa_supplicant"

	// defaultDriver is the supplicant driver.
	defaultDriver = "nl80211"
)

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SupplicantConfig contains settings for managing wpa_supplicant.
type SupplicantConfig struct {
	// Managed indicates whether the supervisor should run wpa_supplicant
	// itself. If false, the supplicant is expected to run externally.
	Managed bool

	// Binary is the wpa_supplicant executable path.
	Binary string

	// ConfigFile is the wpa_supplicant configuration file. Credentials
	// live in this file; the supervisor never reads or logs its contents.
	ConfigFile string

	// Driver is the supplicant driver.
	Driver string

	// RestartOnFailure enables automatic restart if the supplicant crashes.
	RestartOnFailure bool

	// RestartDelay is the time to wait before restarting.
	RestartDelay time.Duration

	// MaxRestartAttempts limits restart attempts. 0 means unlimited.
	MaxRestartAttempts int
}

// Config holds supervisor configuration.
type Config struct {
	// Interface is the network interface to watch (e.g., "wlan0").
	Interface string

	// PollInterval is how often to sample the interface state.
	PollInterval time.Duration

	// OperstateRoot is the sysfs directory holding interface state.
	// Overridable for tests; leave empty for the kernel default.
	OperstateRoot string

	// Supplicant contains wpa_supplicant management settings.
	Supplicant SupplicantConfig
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Interface == "" {
		errs = append(errs, "interface is required")
	}
	if strings.ContainsAny(c.Interface, "/ ") {
		errs = append(errs, "interface must be a bare device name")
	}
	if c.PollInterval < 0 {
		errs = append(errs, "poll_interval must not be negative")
	}
	if c.Supplicant.Managed && c.Supplicant.ConfigFile == "" {
		errs = append(errs, "supplicant.config_file is required when managed")
	}

	if len(errs) > 0 {
		return fmt.Errorf("wifi config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Supervisor watches a network interface and reports connectivity
// transitions exactly once per change.
//
// State is sampled from the kernel's operstate file rather than from
// netlink events: polling survives interface renames, driver reloads
// and supplicant restarts without resubscription logic, and a 2 second
// sampling delay is irrelevant next to broker reconnect timing.
//
// When configured, the supervisor also owns the wpa_supplicant daemon
// through the process manager, restarting it on failure.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Callbacks are invoked from the supervisor's poll goroutine.
type Supervisor struct {
	cfg  Config
	proc *process.Manager

	// Transition callbacks (set before Start).
	onUp   func()
	onDown func()

	// up is the last observed state.
	up bool
	mu sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewSupervisor creates a supervisor for the configured interface.
//
// Parameters:
//   - cfg: Supervisor configuration
//
// Returns:
//   - *Supervisor: Ready to start
//   - error: If the configuration is invalid
func NewSupervisor(cfg Config) (*Supervisor, error) {
	// Apply defaults for zero values
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.OperstateRoot == "" {
		cfg.OperstateRoot = defaultOperstateRoot
	}
	if cfg.Supplicant.Binary == "" {
		cfg.Supplicant.Binary = defaultBinary
	}
	if cfg.Supplicant.Driver == "" {
		cfg.Supplicant.Driver = defaultDriver
	}
	if cfg.Supplicant.RestartDelay == 0 {
		cfg.Supplicant.RestartDelay = 5 * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Supervisor{
		cfg:    cfg,
		done:   make(chan struct{}),
		logger: noopLogger{},
	}, nil
}

// SetLogger sets the logger for the supervisor.
func (s *Supervisor) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

// SetOnUp sets the callback invoked when the interface comes up.
// Must be called before Start.
func (s *Supervisor) SetOnUp(callback func()) {
	s.onUp = callback
}

// SetOnDown sets the callback invoked when the interface goes down.
// Must be called before Start.
func (s *Supervisor) SetOnDown(callback func()) {
	s.onDown = callback
}

// Start launches the supplicant (if managed) and the poll loop.
//
// The initial state is reported through the callbacks on the first
// poll: an interface that is already up fires onUp once.
func (s *Supervisor) Start(ctx context.Context) error {
	if s.cfg.Supplicant.Managed {
		if err := s.startSupplicant(ctx); err != nil {
			return err
		}
	}

	s.wg.Add(1)
	go s.pollLoop()

	s.logInfo("wifi supervisor started",
		"interface", s.cfg.Interface,
		"poll_interval", s.cfg.PollInterval,
		"supplicant_managed", s.cfg.Supplicant.Managed,
	)
	return nil
}

// startSupplicant launches wpa_supplicant under the process manager.
func (s *Supervisor) startSupplicant(ctx context.Context) error {
	sup := s.cfg.Supplicant

	// Credentials stay in the config file; only its path is logged.
	args := []string{
		"-i", s.cfg.Interface,
		"-c", sup.ConfigFile,
		"-D", sup.Driver,
	}

	s.logInfo("starting wpa_supplicant",
		"binary", sup.Binary,
		"interface", s.cfg.Interface,
		"config_file", sup.ConfigFile,
		"driver", sup.Driver,
	)

	proc := process.NewManager(process.Config{
		Name:               "wpa_supplicant",
		Binary:             sup.Binary,
		Args:               args,
		RestartOnFailure:   sup.RestartOnFailure,
		RestartDelay:       sup.RestartDelay,
		MaxRestartAttempts: sup.MaxRestartAttempts,
		OnStop: func(err error) {
			if err != nil {
				s.logWarn("wpa_supplicant stopped", "error", err)
			} else {
				s.logInfo("wpa_supplicant stopped")
			}
		},
		OnRestart: func(attempt int) {
			s.logInfo("wpa_supplicant restarting", "attempt", attempt)
		},
	})
	if l := s.getLogger(); l != nil {
		proc.SetLogger(l)
	}

	if err := proc.Start(ctx); err != nil {
		return fmt.Errorf("starting wpa_supplicant: %w", err)
	}
	s.proc = proc
	return nil
}

// Stop halts polling and, if managed, the supplicant.
// Safe to call multiple times.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		if s.proc != nil {
			if err := s.proc.Stop(); err != nil {
				s.logWarn("stopping wpa_supplicant", "error", err)
			}
		}

		s.logInfo("wifi supervisor stopped", "interface", s.cfg.Interface)
	})
}

// IsUp returns the last observed interface state.
func (s *Supervisor) IsUp() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.up
}

// pollLoop samples the interface state until stopped.
func (s *Supervisor) pollLoop() {
	defer s.wg.Done()

	// Sample immediately so an interface that is already up is
	// reported without waiting a full tick.
	s.sample()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

// sample reads the current state and fires a callback on change.
func (s *Supervisor) sample() {
	up := s.readState()

	s.mu.Lock()
	changed := up != s.up
	s.up = up
	s.mu.Unlock()

	if !changed {
		return
	}

	if up {
		s.logInfo("network up", "interface", s.cfg.Interface)
		if s.onUp != nil {
			s.onUp()
		}
	} else {
		s.logWarn("network down", "interface", s.cfg.Interface)
		if s.onDown != nil {
			s.onDown()
		}
	}
}

// readState reads the kernel operstate file for the interface.
// A missing interface reads as down.
func (s *Supervisor) readState() bool {
	path := filepath.Join(s.cfg.OperstateRoot, s.cfg.Interface, "operstate")
	data, err := os.ReadFile(path) //nolint:gosec // Path is built from validated config
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == "up"
}

func (s *Supervisor) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

func (s *Supervisor) logInfo(msg string, args ...any) {
	if l := s.getLogger(); l != nil {
		l.Info(msg, args...)
	}
}

func (s *Supervisor) logWarn(msg string, args ...any) {
	if l := s.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}
