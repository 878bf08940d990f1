package target

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		def     Defaults
		want    Destination
		wantErr bool
	}{
		{
			name: "empty arg gives defaults",
			arg:  "",
			want: Destination{Scheme: "telnet", Host: "127.0.0.1", Port: 30303, Session: "repl"},
		},
		{
			name: "bare host",
			arg:  "example.com",
			want: Destination{Scheme: "telnet", Host: "example.com", Port: 30303, Session: "repl"},
		},
		{
			name: "host and port",
			arg:  "example.com:4040",
			want: Destination{Scheme: "telnet", Host: "example.com", Port: 4040, Session: "repl"},
		},
		{
			name: "full url with session",
			arg:  "telnet://10.0.0.5:30303?session=web",
			want: Destination{Scheme: "telnet", Host: "10.0.0.5", Port: 30303, Session: "web"},
		},
		{
			name: "http url defaults to port 80",
			arg:  "http://example.com/",
			want: Destination{Scheme: "http", Host: "example.com", Port: 80, Session: "repl"},
		},
		{
			name: "https url defaults to port 443",
			arg:  "https://example.com",
			want: Destination{Scheme: "https", Host: "example.com", Port: 443, Session: "repl"},
		},
		{
			name: "http url with explicit port",
			arg:  "http://example.com:8080?session=s1",
			want: Destination{Scheme: "http", Host: "example.com", Port: 8080, Session: "s1"},
		},
		{
			name: "config defaults fill omitted fields",
			arg:  "example.com",
			def:  Defaults{Scheme: "tcp", Port: 4040, Session: "web"},
			want: Destination{Scheme: "tcp", Host: "example.com", Port: 4040, Session: "web"},
		},
		{
			name:    "port out of range",
			arg:     "example.com:70000",
			wantErr: true,
		},
		{
			name:    "port not numeric",
			arg:     "example.com:abc",
			wantErr: true,
		},
		{
			name:    "garbage with spaces",
			arg:     "not a destination",
			wantErr: true,
		},
		{
			name:    "url without host",
			arg:     "telnet://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.arg, tt.def)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDestination) {
					t.Fatalf("err = %v, want ErrInvalidDestination", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.arg, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %+v, want %+v", tt.arg, got, tt.want)
			}
		})
	}
}

func TestDestinationAddr(t *testing.T) {
	d := Destination{Scheme: "telnet", Host: "127.0.0.1", Port: 30303, Session: "repl"}
	if got := d.Addr(); got != "127.0.0.1:30303" {
		t.Errorf("Addr = %q", got)
	}
	if got := d.String(); got != "telnet://127.0.0.1:30303" {
		t.Errorf("String = %q", got)
	}
}

func TestDestinationKey(t *testing.T) {
	d := Destination{Scheme: "http", Host: "example.com", Port: 80, Session: "web/1"}
	if got := d.Key(); got != "http_example.com_80_web-1" {
		t.Errorf("Key = %q", got)
	}
}
