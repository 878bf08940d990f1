// Package config loads optional destination defaults from a TOML file in
// the user config dir. A missing file is normal; a malformed one is
// reported but never stops startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/lilsweetcaligula/seneca-repl/internal/target"
)

// File mirrors config.toml.
type File struct {
	Scheme  string `toml:"scheme"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Session string `toml:"session"`
}

// Defaults converts the file into destination defaults.
func (f File) Defaults() target.Defaults {
	return target.Defaults{
		Scheme:  f.Scheme,
		Host:    f.Host,
		Port:    f.Port,
		Session: f.Session,
	}
}

// Path returns the expected config file location.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "seneca-repl", "config.toml"), nil
}

// Load reads the config file from its default location. A missing file
// (or an unresolvable config dir) yields zero defaults and no error.
func Load() (File, error) {
	path, err := Path()
	if err != nil {
		return File{}, nil
	}
	return LoadFrom(path)
}

// LoadFrom reads one explicit config file. A missing file yields zero
// defaults and no error; a malformed file is an error the caller may
// report and ignore.
func LoadFrom(path string) (File, error) {
	var f File
	if _, err := os.Stat(path); err != nil {
		return File{}, nil
	}
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return File{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}
