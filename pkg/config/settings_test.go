package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func validSettings() Settings {
	return Settings{
		Addr:              DefaultAddr,
		DB:                DefaultDB,
		AllowedOrigin:     DefaultAllowedOrigin,
		APIKey:            "k",
		Model:             DefaultModel,
		MaxToolIterations: 1,
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validSettings().Validate())

	s := validSettings()
	s.APIKey = " "
	err := s.Validate()
	var ce *ConfigError
	require.True(t, stderrors.As(err, &ce))
	require.Equal(t, "api_key", ce.Field)

	s = validSettings()
	s.MaxToolIterations = -1
	require.Error(t, s.Validate())

	s = validSettings()
	s.DB = ""
	require.Error(t, s.Validate())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("DEVASSIST_API_KEY", "")
	v := New()
	s, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, DefaultAddr, s.Addr)
	require.Equal(t, DefaultDB, s.DB)
	require.Equal(t, DefaultAllowedOrigin, s.AllowedOrigin)
	require.Equal(t, DefaultModel, s.Model)
	require.True(t, s.AutoFunctionCalling)
	require.Equal(t, DefaultMaxToolIterations, s.MaxToolIterations)
	require.Equal(t, "", s.APIKey)
	require.False(t, s.ToolsRespectGitignore)
	require.True(t, s.ToolsSkipBinary)
	require.Equal(t, int64(0), s.ToolsMaxFileSize)
}

func TestLoad_EnvOverridesConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "devassist.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("addr: \":9000\"\nmodel: from-file\napi_key: file-key\n"), 0o644))

	t.Setenv("GOOGLE_API_KEY", "env-key")
	t.Setenv("DEVASSIST_MODEL", "from-env")

	v := New()
	require.NoError(t, ReadConfigFile(v, cfgPath))
	s, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, ":9000", s.Addr)
	require.Equal(t, "from-env", s.Model)
	require.Equal(t, "env-key", s.APIKey)
}

func TestReadConfigFile_ExplicitMissingFails(t *testing.T) {
	v := New()
	require.Error(t, ReadConfigFile(v, filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestReadDotEnv(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("DEVASSIST_API_KEY", "")
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("GOOGLE_API_KEY=dotenv-key\n"), 0o600))

	v := New()
	require.NoError(t, ReadDotEnv(v, envPath))
	s, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "dotenv-key", s.APIKey)

	require.NoError(t, ReadDotEnv(New(), filepath.Join(dir, "absent.env")))
}

func TestReadDotEnv_EnvironmentWins(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "real-env")
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("GOOGLE_API_KEY=dotenv-key\n"), 0o600))

	v := New()
	require.NoError(t, ReadDotEnv(v, envPath))
	require.Equal(t, "real-env", v.GetString("api_key"))
}

func TestBindFlags(t *testing.T) {
	t.Setenv("DEVASSIST_ALLOWED_ORIGIN", "")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("allowed-origin", DefaultAllowedOrigin, "")
	fs.Int("max-tool-iterations", DefaultMaxToolIterations, "")
	require.NoError(t, fs.Parse([]string{"--allowed-origin", "https://app.example", "--max-tool-iterations", "2"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	s, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "https://app.example", s.AllowedOrigin)
	require.Equal(t, 2, s.MaxToolIterations)
}
