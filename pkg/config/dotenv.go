package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// APIKeyEnvVar is the variable the server reads its Gemini key from.
const APIKeyEnvVar = "GOOGLE_API_KEY"

// WriteDotEnvKey sets name=value in the dotenv file at path, replacing an
// existing assignment and keeping every other line. The file is created with
// 0600 permissions when missing.
func WriteDotEnvKey(path, name, value string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("config: dotenv key name is empty")
	}
	if strings.ContainsAny(value, "\r\n") {
		return errors.New("config: dotenv value must be a single line")
	}
	if path == "" {
		path = ".env"
	}

	var lines []string
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		lines = strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	case os.IsNotExist(err):
	default:
		return errors.Wrapf(err, "config: read %s", path)
	}

	assignment := name + "=" + value
	replaced := false
	out := make([]string, 0, len(lines)+1)
	for _, line := range lines {
		if dotEnvKey(line) == name {
			if !replaced {
				out = append(out, assignment)
				replaced = true
			}
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		out = append(out, assignment)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "config: mkdir %s", dir)
		}
	}
	if err := os.WriteFile(path, []byte(strings.Join(out, "\n")+"\n"), 0o600); err != nil {
		return errors.Wrapf(err, "config: write %s", path)
	}
	return nil
}

func dotEnvKey(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	line = strings.TrimPrefix(line, "export ")
	k, _, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	return strings.TrimSpace(k)
}

// MaskSecret keeps the first and last three characters of long secrets.
func MaskSecret(value string) string {
	if value == "" {
		return "(unset)"
	}
	if len(value) <= 8 {
		return "********"
	}
	return value[:3] + "*****" + value[len(value)-3:]
}
