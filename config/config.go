/*
config.go - Runtime configuration

PURPOSE:
  Reads server settings from defaults, an optional .env file and HST_*
  environment variables, in that order of precedence (last wins).
  cmd/server applies its flags on top.

KEYS (env var in parentheses):
  port              (HST_PORT)              HTTP port, default 8080
  backend           (HST_BACKEND)           sqlite | badger | memory
  dataPath          (HST_DATAPATH)          SQLite file or Badger directory;
                                            derived from backend when empty
  allowedOrigins    (HST_ALLOWEDORIGINS)    comma-separated CORS origins
  defaults.children (HST_DEFAULTS_CHILDREN) comma-separated seed names
  defaults.subjects (HST_DEFAULTS_SUBJECTS) comma-separated seed names

SEE ALSO:
  - cmd/server/main.go: flags and startup
  - homeschool/defaults.go: the built-in seed set
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/warp/homeschool-tracker/homeschool"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HST"

// Config is the resolved server configuration.
type Config struct {
	Port           int
	Backend        string
	DataPath       string
	AllowedOrigins []string
	Defaults       homeschool.Defaults
}

// Load resolves the configuration. envFile is loaded into the process
// environment when it exists; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", envFile, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: stat %s: %w", envFile, err)
		}
	}

	v := viper.New()
	seed := homeschool.DefaultDefaults()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("port", 8080)
	v.SetDefault("backend", "sqlite")
	v.SetDefault("dataPath", "")
	v.SetDefault("allowedOrigins", "")
	v.SetDefault("defaults.children", strings.Join(seed.Children, ","))
	v.SetDefault("defaults.subjects", strings.Join(seed.Subjects, ","))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c := &Config{
		Port:           v.GetInt("port"),
		Backend:        strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		DataPath:       strings.TrimSpace(v.GetString("dataPath")),
		AllowedOrigins: splitList(v.GetString("allowedOrigins")),
		Defaults: homeschool.Defaults{
			Children: splitList(v.GetString("defaults.children")),
			Subjects: splitList(v.GetString("defaults.subjects")),
		},
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the port and backend name.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch c.Backend {
	case "sqlite", "badger", "memory":
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	return nil
}

// Path returns DataPath, or the conventional location for the backend.
func (c *Config) Path() string {
	if c.DataPath != "" {
		return c.DataPath
	}
	switch c.Backend {
	case "badger":
		return filepath.Join("data", "badger")
	case "memory":
		return ""
	default:
		return filepath.Join("data", "homeschool.db")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
