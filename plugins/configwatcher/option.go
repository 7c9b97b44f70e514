package configwatcher

import "github.com/bft-labs/relink/pkg/relink"

// WithConfigWatcher returns a relink Option that reloads tick periods
// from cfg.Path whenever the file changes.
//
// Usage:
//
//	s, err := relink.New(ctx, cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/relink/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) relink.Option {
	plugin := New(cfg)
	return relink.WithPlugin(plugin)
}

// WithDefaultConfigWatcher returns a relink Option that watches path
// with default settings (debounce 100ms).
//
// Usage:
//
//	s, err := relink.New(ctx, cfg, configwatcher.WithDefaultConfigWatcher(path))
func WithDefaultConfigWatcher(path string) relink.Option {
	cfg := DefaultConfig()
	cfg.Path = path
	return WithConfigWatcher(cfg)
}
