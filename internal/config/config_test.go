package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
scheme = "http"
host = "repl.internal"
port = 8080
session = "web"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	want := File{Scheme: "http", Host: "repl.internal", Port: 8080, Session: "web"}
	if f != want {
		t.Errorf("LoadFrom = %+v, want %+v", f, want)
	}

	d := f.Defaults()
	if d.Scheme != "http" || d.Host != "repl.internal" || d.Port != 8080 || d.Session != "web" {
		t.Errorf("Defaults = %+v", d)
	}
}

func TestLoadFromMissingFile(t *testing.T) {
	f, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if f != (File{}) {
		t.Errorf("LoadFrom = %+v, want zero value", f)
	}
}

func TestLoadFromMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("scheme = [broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoadFromPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`session = "web"`), 0o600); err != nil {
		t.Fatal(err)
	}
	f, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if f.Session != "web" || f.Scheme != "" || f.Port != 0 {
		t.Errorf("LoadFrom = %+v", f)
	}
}
