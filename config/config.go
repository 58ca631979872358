// Package config handles objbridge.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "objbridge.toml"

// Config represents an objbridge.toml file.
type Config struct {
	Runtime Runtime `toml:"runtime"`
	Modules Modules `toml:"modules"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the config file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the scripting runtime.
type Runtime struct {
	// Libs lists the standard libraries opened in every state.
	Libs          []string `toml:"libs"`
	CallStackSize int      `toml:"call-stack-size"`
	RegistrySize  int      `toml:"registry-size"`
}

// Modules configures the namespaces the bridge creates.
type Modules struct {
	Main    string   `toml:"main"`
	Classes string   `toml:"classes"`
	Path    []string `toml:"path"`
}

// Log configures logging for the command line tool.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// KnownLibs are the library names accepted in runtime.libs.
var KnownLibs = []string{"base", "package", "table", "string", "math", "coroutine", "os", "io", "debug", "channel"}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if len(c.Runtime.Libs) == 0 {
		c.Runtime.Libs = []string{"base", "package", "table", "string", "math", "coroutine"}
	}
	if c.Runtime.CallStackSize == 0 {
		c.Runtime.CallStackSize = 256
	}
	if c.Runtime.RegistrySize == 0 {
		c.Runtime.RegistrySize = 256 * 20
	}
	if c.Modules.Main == "" {
		c.Modules.Main = "__main__"
	}
	if c.Modules.Classes == "" {
		c.Modules.Classes = "native"
	}
}

// Validate checks values that defaults cannot repair.
func (c *Config) Validate() error {
	for _, lib := range c.Runtime.Libs {
		if !isKnownLib(lib) {
			return fmt.Errorf("unknown runtime library %q", lib)
		}
	}
	if c.Modules.Main == c.Modules.Classes {
		return fmt.Errorf("modules.main and modules.classes must differ (both %q)", c.Modules.Main)
	}
	return nil
}

func isKnownLib(name string) bool {
	for _, lib := range KnownLibs {
		if lib == name {
			return true
		}
	}
	return false
}

// Parse decodes configuration text and applies defaults.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load parses the objbridge.toml file in dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Relative search paths are relative to the config file.
	for i, p := range c.Modules.Path {
		if !filepath.IsAbs(p) {
			c.Modules.Path[i] = filepath.Join(c.Dir, p)
		}
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find an objbridge.toml file and
// loads it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}
