// Package target resolves the destination a console run dials: scheme,
// host, port, and the remote session id. A Destination is resolved once at
// startup and is immutable for the process lifetime.
package target

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Package defaults, used when neither the argument nor the config file
// supplies a value.
const (
	DefaultScheme  = "telnet"
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 30303
	DefaultSession = "repl"
)

// ErrInvalidDestination reports an argument that cannot be resolved into a
// Destination. Fatal: the caller exits with status 1.
var ErrInvalidDestination = errors.New("invalid destination")

// Defaults fill fields the argument leaves out. Zero values fall back to
// the package defaults above.
type Defaults struct {
	Scheme  string
	Host    string
	Port    int
	Session string
}

// Destination identifies the remote command processor.
type Destination struct {
	Scheme  string
	Host    string
	Port    int
	Session string
}

// Addr returns the host:port dial address.
func (d Destination) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

func (d Destination) String() string {
	return fmt.Sprintf("%s://%s", d.Scheme, d.Addr())
}

// Key returns a filesystem-safe encoding of the destination, used to key
// the per-target history file.
func (d Destination) Key() string {
	return fmt.Sprintf("%s_%s_%d_%s", d.Scheme, sanitize(d.Host), d.Port, sanitize(d.Session))
}

// Resolve parses arg into a Destination. Accepted forms: a full URL
// ("telnet://host:port?session=web"), "host:port", a bare host, or an
// empty string (defaults only). The session id comes from the "session"
// query parameter when present.
func Resolve(arg string, def Defaults) (Destination, error) {
	dest := Destination{
		Scheme:  orDefault(def.Scheme, DefaultScheme),
		Host:    orDefault(def.Host, DefaultHost),
		Port:    def.Port,
		Session: orDefault(def.Session, DefaultSession),
	}
	if dest.Port == 0 {
		dest.Port = DefaultPort
	}

	arg = strings.TrimSpace(arg)
	if arg == "" {
		return dest, nil
	}

	if strings.Contains(arg, "://") {
		return resolveURL(arg, dest)
	}

	if host, port, err := net.SplitHostPort(arg); err == nil {
		n, err := parsePort(port)
		if err != nil {
			return Destination{}, err
		}
		dest.Host = host
		dest.Port = n
		return dest, nil
	}

	if strings.ContainsAny(arg, "/ \t?") {
		return Destination{}, fmt.Errorf("%w: %q", ErrInvalidDestination, arg)
	}
	dest.Host = arg
	return dest, nil
}

func resolveURL(arg string, dest Destination) (Destination, error) {
	u, err := url.Parse(arg)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return Destination{}, fmt.Errorf("%w: %q", ErrInvalidDestination, arg)
	}

	dest.Scheme = u.Scheme
	dest.Host = u.Hostname()

	switch {
	case u.Port() != "":
		n, err := parsePort(u.Port())
		if err != nil {
			return Destination{}, err
		}
		dest.Port = n
	case u.Scheme == "http":
		dest.Port = 80
	case u.Scheme == "https":
		dest.Port = 443
	}

	if s := u.Query().Get("session"); s != "" {
		dest.Session = s
	}
	return dest, nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > 65535 {
		return 0, fmt.Errorf("%w: bad port %q", ErrInvalidDestination, s)
	}
	return n, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// sanitize keeps the encoding filesystem-safe: anything outside
// [A-Za-z0-9.-] becomes '-'.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
