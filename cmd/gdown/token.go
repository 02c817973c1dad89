package main

import (
	"errors"
	"flag"
	"fmt"
	"time"
)

func runToken(args []string) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: gdown token [options]

Acquire an access token to check the configured credentials.
The token itself is not printed.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	cfg, err := common.load(fs)
	if err != nil {
		return fail(err)
	}
	if err := cfg.ValidateAuth(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	ctx, cancel := runContext(cfg.Timeout)
	defer cancel()

	s, err := openSession(ctx, cfg)
	if err != nil {
		return fail(err)
	}

	expiry := "unknown"
	if !s.token.Expiry.IsZero() {
		expiry = fmt.Sprintf("%s (in %s)", s.token.Expiry.Format(time.RFC3339), time.Until(s.token.Expiry).Round(time.Second))
	}
	fmt.Fprintf(stdout, "mode:    %s\n", cfg.AuthMode)
	fmt.Fprintf(stdout, "type:    %s\n", s.token.Type())
	fmt.Fprintf(stdout, "expires: %s\n", expiry)
	return ExitSuccess
}
