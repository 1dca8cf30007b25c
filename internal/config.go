package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/wordmaster/internal/importer"
	"github.com/starford/wordmaster/internal/session"
	"github.com/starford/wordmaster/internal/store"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Import  ImportConfig      `yaml:"import"`
	Study   StudyConfig       `yaml:"study"`
	Events  EventsConfig      `yaml:"events"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Import.Validate(); err != nil {
		return err
	}
	if err := c.Study.Validate(); err != nil {
		return err
	}
	if err := c.Events.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// LogFile receives logs while the terminal UI owns the screen. Empty discards them.
	LogFile string     `yaml:"log_file"`
	HTTP    HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where the word collection is persisted.
//
// Backend is one of:
//   - "file" (default): Path is a directory holding one JSON file per key.
//   - "sqlite": Path is a SQLite database file with a single kv table.
//   - "memory": nothing survives the process; Path is ignored.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Key     string `yaml:"key"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Key == "" {
		c.Key = store.DefaultKey
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFile, BackendSQLite, BackendMemory)),
		validation.Field(&c.Path, validation.When(c.Backend != BackendMemory, validation.Required)),
	)
}

// ImportConfig controls the word file format and the optional source watcher.
type ImportConfig struct {
	Delimiter string `yaml:"delimiter"`
	// WatchPath, when set, is re-imported by the server whenever it changes.
	WatchPath string `yaml:"watch_path"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	if c.Delimiter == "" {
		c.Delimiter = importer.DefaultDelimiter
	}
	if c.Delimiter == "\n" || c.Delimiter == "\r" {
		return fmt.Errorf("import: delimiter cannot be a line break")
	}
	return nil
}

// StudyConfig holds the initial session settings.
type StudyConfig struct {
	Mode      string `yaml:"mode"`
	Direction string `yaml:"direction"`
}

// Validate validates the study configuration.
func (c *StudyConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.By(parsedBy(session.ParseMode))),
		validation.Field(&c.Direction, validation.Required, validation.By(parsedBy(session.ParseDirection))),
	)
}

// parsedBy turns a session name parser into an ozzo rule.
func parsedBy[T any](parse func(string) (T, error)) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}
		if _, err := parse(s); err != nil {
			return validation.NewError("validation_in_invalid", err.Error())
		}
		return nil
	}
}

// EventsConfig tunes the server-sent event stream.
type EventsConfig struct {
	// StatsThrottle is the minimum gap between stats.updated events.
	StatsThrottle time.Duration `yaml:"stats_throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.StatsThrottle, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration for the HTTP API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "./data",
			Key:     store.DefaultKey,
		},
		Import: ImportConfig{
			Delimiter: importer.DefaultDelimiter,
		},
		Study: StudyConfig{
			Mode:      string(session.ModeFlashcard),
			Direction: string(session.DirectionTermFirst),
		},
		Events: EventsConfig{
			StatsThrottle: 2 * time.Second,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
