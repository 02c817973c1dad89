package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/ligustah/gdown/internal/progress"
)

func runInfo(args []string) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)

	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: gdown info [options] [file-id]

Print the id, name, MIME type and size of a file without downloading it.

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
	if err := cfg.Validate(); err != nil {
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

	file, err := s.drive.GetFile(ctx, s.token, cfg.FileID)
	if err != nil {
		return fail(err)
	}

	fmt.Fprintf(stdout, "id:       %s\n", file.ID)
	fmt.Fprintf(stdout, "name:     %s\n", file.Name)
	fmt.Fprintf(stdout, "mimeType: %s\n", file.MimeType)
	fmt.Fprintf(stdout, "size:     %d (%s)\n", file.Size, progress.FormatBytes(file.Size))
	return ExitSuccess
}
