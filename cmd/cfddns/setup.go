package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/term"

	"github.com/Travis-Britz/cfddns"
)

// runSetup prompts for an API token, verifies it with Cloudflare, and writes it to path.
func runSetup(ctx context.Context, log logr.Logger, path string) error {
	if path == "" {
		return fmt.Errorf("%w: setup needs token_file in the config or -k", cfddns.ErrConfig)
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("key file \"%s\" already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error checking key file: %w", err)
	}

	log.Info("running setup")
	fmt.Fprintf(os.Stderr, "Enter Cloudflare API Token: \n")
	bytekey, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return fmt.Errorf("runSetup: error reading from stdin: %w", err)
	}
	key := strings.TrimSpace(string(bytekey))

	vctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	log.Info("verifying token...")
	if err := cfddns.VerifyToken(vctx, key); err != nil {
		return err
	}
	log.Info("token verified successfully")

	log.Info("creating key file", "path", path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("unable to create \"%s\": %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, key); err != nil {
		return fmt.Errorf("unable to write \"%s\": %w", path, err)
	}
	log.Info("token written", "path", path)
	return nil
}
