// Package config loads the server configuration. Sources are applied in
// order, later ones winning: built-in defaults, an optional YAML file, a
// .env file, the process environment and finally command-line flags.
package config

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/motsvote/internal/errors"
)

const (
	StoreSQLite = "sqlite"
	StoreSheets = "sheets"

	DefaultPort            = 8081
	DefaultDBPath          = "voting.db"
	DefaultManagersTab     = "Managers"
	DefaultSheetsTimeout   = 10 * time.Second
	DefaultRosterRefresh   = 5 * time.Minute
	DefaultShutdownTimeout = 10 * time.Second
)

// envServiceAccountJSON is read when envServiceAccount is unset
const (
	envServiceAccount     = "GOOGLE_SERVICE_ACCOUNT"
	envServiceAccountJSON = "GOOGLE_SERVICE_ACCOUNT_JSON"
)

// ErrVersionRequested is returned by Load when -version was given
var ErrVersionRequested = stderrors.New("version requested")

// Config is the server configuration
type Config struct {
	Port     int    `yaml:"port"     envconfig:"MOTS_PORT"`
	BindAddr string `yaml:"bindAddr" envconfig:"MOTS_BIND_ADDR"`
	BaseURL  string `yaml:"baseUrl"  envconfig:"MOTS_BASE_URL"`

	Store          string        `yaml:"store"          envconfig:"MOTS_STORE"`
	DBPath         string        `yaml:"dbPath"         envconfig:"MOTS_DB"`
	SheetID        string        `yaml:"sheetId"        envconfig:"GOOGLE_SHEET_ID"`
	ServiceAccount string        `yaml:"serviceAccount" envconfig:"GOOGLE_SERVICE_ACCOUNT"`
	ManagersTab    string        `yaml:"managersTab"    envconfig:"MANAGERS_TAB"`
	SheetsTimeout  time.Duration `yaml:"sheetsTimeout"  envconfig:"MOTS_SHEETS_TIMEOUT"`

	CatalogPath string   `yaml:"catalog"  envconfig:"MOTS_CATALOG"`
	Season      string   `yaml:"season"   envconfig:"ALLOWED_SEASON"`
	Deadline    string   `yaml:"deadline" envconfig:"MOTS_DEADLINE"`
	Admins      []string `yaml:"admins"   envconfig:"MOTS_ADMINS"`
	AdminToken  string   `yaml:"adminResetToken" envconfig:"ADMIN_RESET_TOKEN"`

	RosterRefresh   time.Duration `yaml:"rosterRefresh"   envconfig:"MOTS_ROSTER_REFRESH"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"MOTS_SHUTDOWN_TIMEOUT"`

	LogLevel    string `yaml:"logLevel"    envconfig:"MOTS_LOG_LEVEL"`
	LogFormat   string `yaml:"logFormat"   envconfig:"MOTS_LOG_FORMAT"`
	HTTPLogging bool   `yaml:"httpLogging" envconfig:"MOTS_HTTP_LOGGING"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Port:            DefaultPort,
		Store:           StoreSQLite,
		DBPath:          DefaultDBPath,
		ManagersTab:     DefaultManagersTab,
		SheetsTimeout:   DefaultSheetsTimeout,
		RosterRefresh:   DefaultRosterRefresh,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load builds the configuration for programName from all sources. args are
// the command-line arguments without the program name.
func Load(programName string, args []string, stderr io.Writer) (*Config, error) {
	flags := Default()
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", os.Getenv("MOTS_CONFIG"), "YAML configuration file")
	envFile := fs.String("env", ".env", "dotenv file loaded into the environment if present")
	showVersion := fs.Bool("version", false, "Show version and exit")
	fs.IntVar(&flags.Port, "port", flags.Port, "HTTP server port")
	fs.StringVar(&flags.BaseURL, "baseurl", "", "Public base URL used for the share link (detected if empty)")
	fs.StringVar(&flags.Store, "store", flags.Store, "Storage backend: sqlite or sheets")
	fs.StringVar(&flags.DBPath, "db", flags.DBPath, "SQLite database path")
	fs.StringVar(&flags.CatalogPath, "catalog", "", "Season catalog YAML (built-in if empty)")
	fs.StringVar(&flags.Season, "season", "", "Season accepted for voting and resets")
	fs.StringVar(&flags.Deadline, "deadline", "", "Default voting deadline, RFC 3339 UTC ending in Z")
	fs.StringVar(&flags.LogLevel, "loglevel", flags.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&flags.LogFormat, "logformat", flags.LogFormat, "Log format (text, json)")
	fs.BoolVar(&flags.HTTPLogging, "httplog", false, "Log every HTTP request")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *showVersion {
		return nil, ErrVersionRequested
	}

	cfg := Default()
	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			return nil, err
		}
	}
	if err := loadDotEnv(*envFile); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if _, ok := os.LookupEnv(envServiceAccount); !ok {
		if v := os.Getenv(envServiceAccountJSON); v != "" {
			cfg.ServiceAccount = v
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = flags.Port
		case "baseurl":
			cfg.BaseURL = flags.BaseURL
		case "store":
			cfg.Store = flags.Store
		case "db":
			cfg.DBPath = flags.DBPath
		case "catalog":
			cfg.CatalogPath = flags.CatalogPath
		case "season":
			cfg.Season = flags.Season
		case "deadline":
			cfg.Deadline = flags.Deadline
		case "loglevel":
			cfg.LogLevel = flags.LogLevel
		case "logformat":
			cfg.LogFormat = flags.LogFormat
		case "httplog":
			cfg.HTTPLogging = flags.HTTPLogging
		}
	})

	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	return cfg, cfg.Validate()
}

// LoadFile merges a YAML file over the current values
func (c *Config) LoadFile(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	return nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return errors.Validationf("port %d out of range", c.Port)
	}
	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return errors.Validation("db path is required for the sqlite store")
		}
	case StoreSheets:
		if c.SheetID == "" {
			return errors.Validation("GOOGLE_SHEET_ID is required for the sheets store")
		}
		if c.ServiceAccount == "" {
			return errors.Validation("GOOGLE_SERVICE_ACCOUNT is required for the sheets store")
		}
	default:
		return errors.Validationf("unknown store %q", c.Store)
	}
	if c.Deadline != "" {
		if !strings.HasSuffix(c.Deadline, "Z") {
			return errors.Validationf("deadline %q must be UTC and end in Z", c.Deadline)
		}
		if _, err := time.Parse(time.RFC3339, c.Deadline); err != nil {
			return errors.Validationf("deadline %q is not RFC 3339", c.Deadline)
		}
	}
	if c.Season != "" && strings.ContainsAny(c.Season, "!'") {
		return errors.Validationf("season %q contains characters not allowed in a tab name", c.Season)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return errors.Validationf("unknown log format %q", c.LogFormat)
	}
	if c.SheetsTimeout <= 0 {
		return errors.Validation("sheets timeout must be positive")
	}
	if c.RosterRefresh < 0 {
		return errors.Validation("roster refresh must not be negative")
	}
	return nil
}

// Credentials returns the service account key. GOOGLE_SERVICE_ACCOUNT (or
// GOOGLE_SERVICE_ACCOUNT_JSON) holds either the JSON key itself or a path to it.
func (c *Config) Credentials() ([]byte, error) {
	v := strings.TrimSpace(c.ServiceAccount)
	if strings.HasPrefix(v, "{") {
		return []byte(v), nil
	}
	data, err := os.ReadFile(v)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	return data, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}
