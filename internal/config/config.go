package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HeadsetAutoPlay   bool  `koanf:"headset_auto_play"`    // resume when a headset is plugged back in
	CoverOnLockScreen *bool `koanf:"cover_on_lock_screen"` // publish artwork to session surfaces (default: true)

	LibrarySources []string `koanf:"library_sources"` // paths scanned by "library add" when none are given

	Metered      MeteredConfig      `koanf:"metered"`
	AutoRewind   AutoRewindConfig   `koanf:"auto_rewind"`
	Notification NotificationConfig `koanf:"notification"`
	Widget       WidgetConfig       `koanf:"widget"`
	SleepTimer   SleepTimerConfig   `koanf:"sleep_timer"`
	Queue        QueueConfig        `koanf:"queue"`
	Library      DBConfig           `koanf:"library"`
	State        DBConfig           `koanf:"state"`
	Remote       RemoteConfig       `koanf:"remote"`
	Log          LogConfig          `koanf:"log"`

	// Last.fm scrobbling (enables scrobbling when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`
}

// MeteredConfig holds the metered-connection policy.
type MeteredConfig struct {
	Policy       string        `koanf:"policy"`        // "ignore", "stop" or "warn" (default: "ignore")
	PollInterval time.Duration `koanf:"poll_interval"` // NetworkManager poll interval (default: 5s)
}

// AutoRewindConfig holds the rewind applied when resuming after a pause.
type AutoRewindConfig struct {
	ShortPause  *time.Duration `koanf:"short_pause"`  // default: 1m
	ShortRewind *time.Duration `koanf:"short_rewind"` // default: 5s
	LongPause   *time.Duration `koanf:"long_pause"`   // default: 10m
	LongRewind  *time.Duration `koanf:"long_rewind"`  // default: 15s
}

// NotificationConfig holds the desktop notification throttle.
type NotificationConfig struct {
	MinInterval time.Duration `koanf:"min_interval"` // default: 1s
	BuildDelay  time.Duration `koanf:"build_delay"`  // default: 100ms
}

// WidgetConfig holds the widget state file settings.
type WidgetConfig struct {
	Path             string        `koanf:"path"`              // default: $XDG_RUNTIME_DIR/wavesd/widget.json
	PositionInterval time.Duration `koanf:"position_interval"` // default: 500ms
}

// SleepTimerConfig holds the sleep timer poll interval.
type SleepTimerConfig struct {
	Tick time.Duration `koanf:"tick"` // default: 1s
}

// QueueConfig holds the car mode queue window.
type QueueConfig struct {
	HalfWindow int `koanf:"half_window"` // items on each side of the current one (default: 7)
}

// DBConfig holds a database location.
type DBConfig struct {
	DBPath string `koanf:"db_path"`
}

// RemoteConfig holds the HTTP remote control settings.
type RemoteConfig struct {
	Addr   string `koanf:"addr"`    // default: 127.0.0.1:7770, "off" disables
	APIKey string `koanf:"api_key"` // required X-API-Key header when set
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`  // logrus level (default: info)
	Format string `koanf:"format"` // "text" or "json" (default: text)
	File   string `koanf:"file"`   // log file; empty logs to stderr
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

const (
	DefaultMeteredPoll      = 5 * time.Second
	DefaultShortPause       = time.Minute
	DefaultShortRewind      = 5 * time.Second
	DefaultLongPause        = 10 * time.Minute
	DefaultLongRewind       = 15 * time.Second
	DefaultMinInterval      = time.Second
	DefaultBuildDelay       = 100 * time.Millisecond
	DefaultPositionInterval = 500 * time.Millisecond
	DefaultSleepTick        = time.Second
	DefaultHalfWindow       = 7
	DefaultRemoteAddr       = "127.0.0.1:7770"
	RemoteDisabled          = "off"

	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultMeteredPolicy = "ignore"
	widgetFileName       = "widget.json"
	appDir               = "wavesd"
	configFileName       = "config.toml"
	maxHalfWindow        = 50
)

// Load reads the configuration. An explicit path replaces the search path;
// otherwise every existing file of the search path is loaded, later ones
// overriding earlier ones.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	configPaths := getConfigPaths()
	if path != "" {
		configPaths = []string{expandPath(path)}
	}

	for i, p := range configPaths {
		if _, err := os.Stat(p); err != nil {
			if path != "" && i == 0 {
				return nil, err
			}
			continue
		}
		if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	for i, src := range cfg.LibrarySources {
		cfg.LibrarySources[i] = expandPath(src)
	}
	cfg.Library.DBPath = expandPath(cfg.Library.DBPath)
	cfg.State.DBPath = expandPath(cfg.State.DBPath)
	cfg.Widget.Path = expandPath(cfg.Widget.Path)
	cfg.Log.File = expandPath(cfg.Log.File)

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. $XDG_CONFIG_HOME/wavesd/config.toml
	paths = append(paths, filepath.Join(xdg.ConfigHome, appDir, configFileName))

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, configFileName)

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// ShowCoverOnLockScreen reports whether artwork is published.
func (c *Config) ShowCoverOnLockScreen() bool {
	return c.CoverOnLockScreen == nil || *c.CoverOnLockScreen
}

// GetMeteredConfig returns the metered configuration with defaults applied.
func (c *Config) GetMeteredConfig() MeteredConfig {
	cfg := c.Metered
	switch cfg.Policy {
	case "ignore", "stop", "warn":
	default:
		cfg.Policy = defaultMeteredPolicy
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultMeteredPoll
	}
	return cfg
}

// GetAutoRewindConfig returns the auto-rewind configuration with defaults
// applied. An explicit zero disables a threshold.
func (c *Config) GetAutoRewindConfig() AutoRewindConfig {
	orDefault := func(v *time.Duration, def time.Duration) *time.Duration {
		if v == nil || *v < 0 {
			return &def
		}
		return v
	}
	return AutoRewindConfig{
		ShortPause:  orDefault(c.AutoRewind.ShortPause, DefaultShortPause),
		ShortRewind: orDefault(c.AutoRewind.ShortRewind, DefaultShortRewind),
		LongPause:   orDefault(c.AutoRewind.LongPause, DefaultLongPause),
		LongRewind:  orDefault(c.AutoRewind.LongRewind, DefaultLongRewind),
	}
}

// GetNotificationConfig returns the notification configuration with
// defaults applied.
func (c *Config) GetNotificationConfig() NotificationConfig {
	cfg := c.Notification
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.BuildDelay <= 0 {
		cfg.BuildDelay = DefaultBuildDelay
	}
	return cfg
}

// GetWidgetConfig returns the widget configuration with defaults applied.
func (c *Config) GetWidgetConfig() WidgetConfig {
	cfg := c.Widget
	if cfg.Path == "" {
		cfg.Path = filepath.Join(xdg.RuntimeDir, appDir, widgetFileName)
	}
	if cfg.PositionInterval <= 0 {
		cfg.PositionInterval = DefaultPositionInterval
	}
	return cfg
}

// GetSleepTimerConfig returns the sleep timer configuration with defaults
// applied.
func (c *Config) GetSleepTimerConfig() SleepTimerConfig {
	cfg := c.SleepTimer
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultSleepTick
	}
	return cfg
}

// GetQueueConfig returns the queue configuration with defaults applied.
func (c *Config) GetQueueConfig() QueueConfig {
	cfg := c.Queue
	if cfg.HalfWindow <= 0 || cfg.HalfWindow > maxHalfWindow {
		cfg.HalfWindow = DefaultHalfWindow
	}
	return cfg
}

// GetRemoteConfig returns the remote configuration with defaults applied.
func (c *Config) GetRemoteConfig() RemoteConfig {
	cfg := c.Remote
	if cfg.Addr == "" {
		cfg.Addr = DefaultRemoteAddr
	}
	return cfg
}

// RemoteEnabled reports whether the HTTP remote should be started.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.Addr != RemoteDisabled
}

// GetLogConfig returns the logging configuration with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log
	if cfg.Level == "" {
		cfg.Level = defaultLogLevel
	}
	if cfg.Format != "json" {
		cfg.Format = defaultLogFormat
	}
	return cfg
}
