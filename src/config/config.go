package config

import (
	"crypto/ecdsa"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/eventflow/src/common"
	"github.com/mosaicnetworks/eventflow/src/event"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the validator's
	// private key.
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database of archived consensus rounds.
	DefaultBadgerFile = "badger_db"
)

// Default configuration values.
const (
	DefaultLogLevel         = "debug"
	DefaultCacheSize        = 10000
	DefaultIntakeCapacity   = 1024
	DefaultPoolSize         = 4
	DefaultSleepDuration    = 1 * time.Millisecond
	DefaultCoinRoundFreq    = 4
	DefaultAncientRoundSpan = 26
	DefaultExpiredRoundSpan = 26
	DefaultStore            = false
	DefaultBootstrap        = false
)

// Config contains all the configuration properties of an eventflow node.
type Config struct {
	// DataDir is the top-level directory containing eventflow configuration
	// and data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, duplicates log output to the given file.
	LogFile string `mapstructure:"log-file"`

	// Moniker defines the friendly name of this node.
	Moniker string `mapstructure:"moniker"`

	// Store activates persistent storage of consensus rounds and state
	// signatures.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Bootstrap determines whether to reload archived rounds from an existing
	// database on startup. Forces Store.
	Bootstrap bool `mapstructure:"bootstrap"`

	// CacheSize is the max number of items in in-memory caches.
	CacheSize int `mapstructure:"cache-size"`

	// IntakeCapacity bounds the number of gossip events in flight inside the
	// intake pipeline. Submissions block when the bound is reached.
	IntakeCapacity int64 `mapstructure:"intake-capacity"`

	// PoolSize is the number of goroutines in the wiring model's shared
	// worker pool.
	PoolSize int `mapstructure:"pool-size"`

	// SleepDuration is the backoff interval used when blocking on
	// backpressure.
	SleepDuration time.Duration `mapstructure:"sleep-duration"`

	// BirthRoundMode selects birth-round ancient thresholds instead of
	// generation-based ones.
	BirthRoundMode bool `mapstructure:"birth-round-mode"`

	// CoinRoundFreq is the voting-round interval at which fame elections
	// fall back to coin flips.
	CoinRoundFreq int64 `mapstructure:"coin-round-freq"`

	// AncientRoundSpan is the number of trailing consensus rounds kept
	// non-ancient.
	AncientRoundSpan int64 `mapstructure:"ancient-round-span"`

	// ExpiredRoundSpan is how far the expired threshold lags behind the
	// ancient threshold.
	ExpiredRoundSpan int64 `mapstructure:"expired-round-span"`

	// Key is the private key of the validator.
	Key *ecdsa.PrivateKey

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:          DefaultDataDir(),
		LogLevel:         DefaultLogLevel,
		Store:            DefaultStore,
		DatabaseDir:      DefaultDatabaseDir(),
		Bootstrap:        DefaultBootstrap,
		CacheSize:        DefaultCacheSize,
		IntakeCapacity:   DefaultIntakeCapacity,
		PoolSize:         DefaultPoolSize,
		SleepDuration:    DefaultSleepDuration,
		CoinRoundFreq:    DefaultCoinRoundFreq,
		AncientRoundSpan: DefaultAncientRoundSpan,
		ExpiredRoundSpan: DefaultExpiredRoundSpan,
	}
}

// NewTestConfig returns a config object with default values and a logger that
// writes through the test runner.
func NewTestConfig(t testing.TB) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t)
	return config
}

// SetDataDir sets the top-level eventflow directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitly
// set it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// AncientMode returns the configured ancient-threshold mode.
func (c *Config) AncientMode() event.AncientMode {
	if c.BirthRoundMode {
		return event.BirthRoundThreshold
	}
	return event.GenerationThreshold
}

// Logger returns a formatted logrus Entry, with prefix set to "eventflow".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			pathMap := lfshook.PathMap{}
			for _, level := range logrus.AllLevels {
				if level <= c.logger.Level {
					pathMap[level] = c.LogFile
				}
			}
			c.logger.Hooks.Add(lfshook.NewHook(
				pathMap,
				&logrus.JSONFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "eventflow")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir returns the default directory name for top-level eventflow
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".EventFlow")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "EventFlow")
		} else {
			return filepath.Join(home, ".eventflow")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
