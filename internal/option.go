package internal

import (
	"io"
	"os"
)

// Mode selects which surface Run exposes.
type Mode string

// Run modes.
const (
	ModeServe Mode = "serve" // REST API, SSE and the index watcher
	ModeMCP   Mode = "mcp"   // MCP over stdin/stdout plus the index watcher
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	mode    Mode
	version string
	stdin   io.Reader
	stdout  io.Writer
}

func newApplication() *application {
	return &application{
		mode:    ModeServe,
		version: "dev",
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode selects the serve or mcp surface.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithStdio replaces the streams used by the MCP transport.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(a *application) {
		a.stdin = in
		a.stdout = out
	}
}
