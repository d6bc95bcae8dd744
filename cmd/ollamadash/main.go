package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"ollamadash/internal/common/fsutil"
)

func main() {
	loadEnvFiles()
	root := newRootCmd(os.Stdout, os.Stderr)
	if len(os.Args) == 1 {
		root.SetArgs([]string{"serve"})
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadEnvFiles applies .env files from the working directory and its parent.
// Values in the files win over the inherited environment.
func loadEnvFiles() {
	for _, path := range []string{".env", "../.env"} {
		if !fsutil.FileExists(path) {
			continue
		}
		if err := godotenv.Overload(path); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
		}
	}
}

// newLogger builds the process logger. format is "json" or "console".
func newLogger(level, format string, w io.Writer) zerolog.Logger {
	lvl := zerolog.InfoLevel
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "":
	case "off":
		lvl = zerolog.Disabled
	default:
		if parsed, err := zerolog.ParseLevel(l); err == nil {
			lvl = parsed
		}
	}
	out := w
	if format != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Str("service", "ollamadash").Logger().Level(lvl)
}

// splitCSV splits a comma-separated flag value, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
