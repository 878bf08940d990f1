package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lilsweetcaligula/seneca-repl/internal/config"
	"github.com/lilsweetcaligula/seneca-repl/internal/protocol"
	"github.com/lilsweetcaligula/seneca-repl/internal/repl"
	"github.com/lilsweetcaligula/seneca-repl/internal/target"
	"github.com/lilsweetcaligula/seneca-repl/internal/version"
)

// globalFlags holds double-dash flags parsed from os.Args.
// dest is the first non-flag argument (the destination URL), if any.
type globalFlags struct {
	version bool
	verbose bool
	dest    string
}

// parseGlobalFlags scans os.Args for flags and the destination argument.
func parseGlobalFlags() (globalFlags, error) {
	var g globalFlags
	for _, arg := range os.Args[1:] {
		switch {
		case arg == "--version":
			g.version = true
		case arg == "--verbose":
			g.verbose = true
		case strings.HasPrefix(arg, "-"):
			return g, fmt.Errorf("unknown flag %q", arg)
		case g.dest == "":
			g.dest = arg
		default:
			return g, fmt.Errorf("unexpected argument %q", arg)
		}
	}
	return g, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: seneca-repl [--verbose] [url]")
	fmt.Fprintln(os.Stderr, "       seneca-repl --version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "url forms:")
	fmt.Fprintln(os.Stderr, "  telnet://host:port?session=name   persistent stream (default)")
	fmt.Fprintln(os.Stderr, "  http://host:port?session=name     request/response polling")
	fmt.Fprintln(os.Stderr, "  quic://host:port?session=name     stream over QUIC")
	fmt.Fprintln(os.Stderr, "  host:port, host, or nothing (defaults to telnet://127.0.0.1:30303)")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "flags:")
	fmt.Fprintln(os.Stderr, "  --version   print version and exit")
	fmt.Fprintln(os.Stderr, "  --verbose   emit structured logs to stderr")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "interactive: Ctrl-R searches history, quit/exit leaves.")
}

func main() {
	gf, err := parseGlobalFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", protocol.ErrorMarker, err)
		usage()
		os.Exit(1)
	}

	if gf.version {
		fmt.Printf("seneca-repl %s (%s)\n", version.VERSION, version.Commit)
		os.Exit(0)
	}

	cf, err := config.Load()
	if err != nil {
		// Malformed config: report, run on package defaults.
		fmt.Fprintf(os.Stderr, "%s: config ignored: %v\n", protocol.ErrorMarker, err)
	}

	dest, err := target.Resolve(gf.dest, cf.Defaults())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", protocol.ErrorMarker, err)
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := repl.New(repl.Config{Dest: dest, Verbose: gf.verbose})
	if err := c.Run(ctx); err != nil {
		var hs *protocol.HandshakeError
		if errors.As(err, &hs) {
			fmt.Fprintln(os.Stderr, hs.Message())
		} else {
			fmt.Fprintf(os.Stderr, "%s: %v\n", protocol.ErrorMarker, err)
		}
		os.Exit(1)
	}
}
