// Package configwatcher reloads session tick periods from a TOML file.
// When enabled, it watches the file for changes and applies the
// heartbeat and timeout values to the running session.
package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/relink/pkg/log"
	"github.com/bft-labs/relink/pkg/relink"
)

// Plugin implements config watching functionality.
// It monitors one TOML file and calls Controller.SetPeriods when the
// heartbeat or timeout values in it change.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration

	// Runtime state
	logger     relink.Logger
	controller relink.Controller
	heartbeat  int
	timeout    int
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	debounce   *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// periods is the subset of the config file this plugin reads.
type periods struct {
	Heartbeat int `toml:"heartbeat"`
	Timeout   int `toml:"timeout"`
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize records the session's current periods and starts watching.
func (p *Plugin) Initialize(ctx context.Context, cfg relink.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	p.controller = cfg.Controller
	p.heartbeat = cfg.HeartbeatTicks
	p.timeout = cfg.TimeoutTicks
	p.mu.Unlock()

	if p.path == "" || p.controller == nil {
		p.logger.Warn("Config watcher disabled: no config path or controller")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory so editors that replace the file are still seen.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("Config watcher plugin initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
		p.debounce = nil
	}
	p.mu.Unlock()
	return nil
}

// watchLoop watches for config file changes.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("Config watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.reload(); err != nil {
			p.logger.Warn("Config watcher: reload skipped", log.Err(err))
		}
	})
}

// reload reads the file and applies changed periods. Missing keys keep
// their current values.
func (p *Plugin) reload() error {
	b, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}
	var next periods
	if err := toml.Unmarshal(b, &next); err != nil {
		return fmt.Errorf("parse %s: %w", p.path, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	heartbeat, timeout := p.heartbeat, p.timeout
	if next.Heartbeat != 0 {
		heartbeat = next.Heartbeat
	}
	if next.Timeout != 0 {
		timeout = next.Timeout
	}
	if heartbeat == p.heartbeat && timeout == p.timeout {
		return nil
	}

	if err := p.controller.SetPeriods(heartbeat, timeout); err != nil {
		return err
	}
	p.heartbeat, p.timeout = heartbeat, timeout
	p.logger.Info("Config watcher: applied tick periods",
		log.Int("heartbeat_ticks", heartbeat),
		log.Int("timeout_ticks", timeout),
	)
	return nil
}

// Ensure Plugin implements relink.Plugin.
var _ relink.Plugin = (*Plugin)(nil)
