package app

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"logstore-go/internal/config"
)

// ResolvePassword fills in a missing WebDAV password, first from the
// LOGSTORE_PASSWORD environment variable and then, when in is a terminal,
// by prompting on out without echo.
func ResolvePassword(cfg *config.Config, in *os.File, out io.Writer) error {
	if cfg.Remote.Type != "webdav" || cfg.Remote.Password != "" {
		return nil
	}
	if pw := os.Getenv("LOGSTORE_PASSWORD"); pw != "" {
		cfg.Remote.Password = pw
		return nil
	}

	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	fmt.Fprintf(out, "WebDAV password for %s: ", cfg.Remote.Username)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	cfg.Remote.Password = string(pw)
	return nil
}
