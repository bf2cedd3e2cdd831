// Package config loads the agent configuration: a dnsmasq-style file of
// "optionName value" lines, optionally grouped under [section] headers,
// checked against a typed schema.
package config

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config is a parsed configuration file.
type Config struct {
	Global map[string]string
	// Sections holds the options of each [section]. The section named by
	// run.profile overrides Global.
	Sections map[string]map[string]string
	// Warnings lists the problems found while loading, in file order for
	// syntax problems followed by the sorted schema issues.
	Warnings []string
}

// NewConfig returns an empty configuration.
func NewConfig() *Config {
	return &Config{
		Global:   make(map[string]string),
		Sections: make(map[string]map[string]string),
	}
}

// Load reads the file at GetConfigPath.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("config path: %w", err)
	}
	return LoadFromPath(path)
}

// LoadFromPath reads the file at path. A missing file is an empty
// configuration. Symlinks are refused.
func LoadFromPath(path string) (*Config, error) {
	fi, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		return NewConfig(), nil
	case err != nil:
		return nil, fmt.Errorf("config: %w", err)
	case fi.Mode()&os.ModeSymlink != 0:
		return nil, fmt.Errorf("config: symlink not allowed: %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses r. Malformed lines and schema violations become
// warnings, logged as they are found; only read errors fail.
func LoadFromReader(r io.Reader) (*Config, error) {
	c := NewConfig()
	opts := c.Global

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "", strings.HasPrefix(line, "#"):
			continue
		case strings.HasPrefix(line, "["):
			name, ok := strings.CutSuffix(line[1:], "]")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				c.warn("line %d: malformed section header %q", n, line)
				continue
			}
			if c.Sections[name] == nil {
				c.Sections[name] = make(map[string]string)
			}
			opts = c.Sections[name]
			continue
		}
		name, value, _ := strings.Cut(line, " ")
		opts[name] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	for _, issue := range DefaultSchema().Validate(c) {
		c.warn("%s", issue)
	}
	return c, nil
}

func (c *Config) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.Warnings = append(c.Warnings, msg)
	slog.Warn("[Config] " + msg)
}

// GetGlobalOption returns a global option.
func (c *Config) GetGlobalOption(name string) (string, bool) {
	v, ok := c.Global[name]
	return v, ok
}

// GetSectionOption returns an option of section, falling back to the global
// option of the same name.
func (c *Config) GetSectionOption(section, name string) (string, bool) {
	if v, ok := c.Sections[section][name]; ok {
		return v, true
	}
	return c.GetGlobalOption(name)
}

// SetGlobalOption sets a global option.
func (c *Config) SetGlobalOption(name, value string) { c.Global[name] = value }

// SetSectionOption sets an option of section, creating it if needed.
func (c *Config) SetSectionOption(section, name, value string) {
	if c.Sections[section] == nil {
		c.Sections[section] = make(map[string]string)
	}
	c.Sections[section][name] = value
}
