// Package config loads server settings from flags, environment, an optional
// YAML config file and an optional .env file, in that order of precedence.
package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	AppName   = "devassist"
	EnvPrefix = "DEVASSIST"

	DefaultAddr              = ":8000"
	DefaultDB                = "chat_history.db"
	DefaultAllowedOrigin     = "http://localhost:3000"
	DefaultModel             = "gemini-2.5-pro"
	DefaultMaxToolIterations = 5
)

type Settings struct {
	Addr                string `mapstructure:"addr"`
	DB                  string `mapstructure:"db"`
	AllowedOrigin       string `mapstructure:"allowed_origin"`
	APIKey              string `mapstructure:"api_key"`
	Model               string `mapstructure:"model"`
	AutoFunctionCalling bool   `mapstructure:"auto_function_calling"`
	MaxToolIterations   int    `mapstructure:"max_tool_iterations"`
	ToolsRoot           string `mapstructure:"tools_root"`
	// ToolsRespectGitignore hides .gitignore'd entries and well-known
	// vendor/build directories from list_project_files.
	ToolsRespectGitignore bool   `mapstructure:"tools_respect_gitignore"`
	ToolsMaxFileSize      int64  `mapstructure:"tools_max_file_size"`
	ToolsSkipBinary       bool   `mapstructure:"tools_skip_binary"`
	SystemInstruction     string `mapstructure:"system_instruction"`
}

// ConfigError is a configuration problem that prevents the server from
// starting.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return "config: " + e.Field + ": " + e.Msg
}

// Validate checks the settings needed to serve chat requests.
func (s Settings) Validate() error {
	switch {
	case strings.TrimSpace(s.APIKey) == "":
		return &ConfigError{Field: "api_key", Msg: "GOOGLE_API_KEY is not set (environment, .env or config file)"}
	case strings.TrimSpace(s.Addr) == "":
		return &ConfigError{Field: "addr", Msg: "listen address is empty"}
	case strings.TrimSpace(s.DB) == "":
		return &ConfigError{Field: "db", Msg: "database path is empty"}
	case strings.TrimSpace(s.AllowedOrigin) == "":
		return &ConfigError{Field: "allowed_origin", Msg: "allowed origin is empty"}
	case s.MaxToolIterations < 0:
		return &ConfigError{Field: "max_tool_iterations", Msg: "must not be negative"}
	case s.ToolsMaxFileSize < 0:
		return &ConfigError{Field: "tools_max_file_size", Msg: "must not be negative"}
	}
	return nil
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("db", DefaultDB)
	v.SetDefault("allowed_origin", DefaultAllowedOrigin)
	v.SetDefault("model", DefaultModel)
	v.SetDefault("auto_function_calling", true)
	v.SetDefault("max_tool_iterations", DefaultMaxToolIterations)
	v.SetDefault("tools_root", ".")
	v.SetDefault("tools_respect_gitignore", false)
	v.SetDefault("tools_max_file_size", 0)
	v.SetDefault("tools_skip_binary", true)
	v.SetDefault("system_instruction", "")
	v.SetDefault("api_key", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "GOOGLE_API_KEY")
	return v
}

// BindFlags binds every flag of fs to the key with dashes replaced by
// underscores.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil {
			bindErr = errors.Wrapf(err, "config: bind flag %s", f.Name)
		}
	})
	return bindErr
}

// ReadConfigFile reads configFile when given, otherwise searches
// ./devassist.yaml and $HOME/.devassist/devassist.yaml. A missing file is only
// an error when it was named explicitly.
func ReadConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "config: read %s", configFile)
		}
		return nil
	}

	v.SetConfigName(AppName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, "."+AppName))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if stderrors.As(err, &notFound) {
			return nil
		}
		return errors.Wrap(err, "config: read config file")
	}
	return nil
}

// ReadDotEnv loads GOOGLE_API_KEY from a dotenv file as the lowest-priority
// source for api_key. A missing file is ignored.
func ReadDotEnv(v *viper.Viper, path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "config: stat %s", path)
	}
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "config: read %s", path)
	}
	for _, key := range []string{"google_api_key", strings.ToLower(EnvPrefix) + "_api_key"} {
		if val := env.GetString(key); val != "" {
			v.SetDefault("api_key", val)
			return nil
		}
	}
	return nil
}

// Load decodes the resolved settings without validating them.
func Load(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.Wrap(err, "config: decode settings")
	}
	return s, nil
}
