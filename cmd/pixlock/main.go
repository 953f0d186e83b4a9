// pixlock locks an X11 session until the user enters their login password.
//
// The screens keep showing a pixelated screenshot of the session while locked. The color tint of
// the screenshot tells whether nothing was typed yet, a password is being typed, or the last
// password was wrong.
//
// Usage:
//
//	pixlock [-v] [--config PATH] [--verbose] [--display NAME] [cmd [arg ...]]
//
// The optional command is run after the session was unlocked, with the privileges pixlock
// dropped to.
//
// pixlock is meant to be installed setuid root so it can read /etc/shadow and protect itself
// from the OOM killer. It drops its privileges to the configured user and group before it reads
// any input.
package main

import (
	"errors"
	"fmt"
	"github.com/MatthiasKunnen/pixlock/pkg/config"
	"github.com/MatthiasKunnen/pixlock/pkg/privdrop"
	"github.com/spf13/pflag"
	"io"
	"log/slog"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	version    bool
	configPath string
	verbose    bool
	display    string
	command    []string
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pixlock: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	if opts.version {
		fmt.Fprintf(stdout, "pixlock-%s\n", version)
		return nil
	}

	cfg, err := config.Load(opts.configPath, privdrop.Elevated(privdrop.System))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	l := &locker{
		cfg:     cfg,
		display: opts.display,
		logger:  logger,
	}
	return l.run(opts.command)
}

func parseFlags(args []string, output io.Writer) (options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("pixlock", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	// Everything after the first non-flag argument belongs to the command.
	flagSet.SetInterspersed(false)
	flagSet.BoolVarP(&opts.version, "version", "v", false, "print the version and exit")
	flagSet.StringVar(&opts.configPath, "config", "", "configuration file (default "+config.DefaultPath+" if present)")
	flagSet.BoolVar(&opts.verbose, "verbose", false, "log debug messages")
	flagSet.StringVar(&opts.display, "display", "", "X display to lock (default $DISPLAY)")
	flagSet.Usage = func() {
		fmt.Fprintf(output, "usage: pixlock [-v] [--config PATH] [--verbose] [--display NAME] [cmd [arg ...]]\n\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	opts.command = flagSet.Args()

	return opts, nil
}
