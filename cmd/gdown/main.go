package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	logging "github.com/ipfs/go-log/v2"

	"github.com/ligustah/gdown/internal/auth"
	"github.com/ligustah/gdown/internal/config"
	"github.com/ligustah/gdown/internal/downloader"
	"github.com/ligustah/gdown/internal/drive"
	gdhttp "github.com/ligustah/gdown/internal/http"
)

var log = logging.Logger("gdown/cmd")

// Exit codes
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitInvalidArgs     = 2
	ExitConfigError     = 3
	ExitCryptoError     = 4
	ExitAuthFailed      = 5
	ExitNotAuthorized   = 6
	ExitTransportError  = 7
	ExitNoContentLength = 8
	ExitStorageError    = 9
	ExitNotFound        = 10
)

// Console destinations, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "fetch":
		return runFetch(cmdArgs)
	case "info":
		return runInfo(cmdArgs)
	case "token":
		return runToken(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: gdown <command> [options] [file-id]

Commands:
  fetch     Download a file into the download directory (or a bucket)
  info      Print the metadata of a file
  token     Acquire an access token and print its type and expiry

Run 'gdown <command> -h' for command-specific help.`)
}

// exitCode maps an error to the exit code of its failure class.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, auth.ErrConfig), errors.Is(err, config.ErrInvalid):
		return ExitConfigError
	case errors.Is(err, auth.ErrCrypto):
		return ExitCryptoError
	case errors.Is(err, auth.ErrAuthentication):
		return ExitAuthFailed
	case errors.Is(err, drive.ErrAuthorization):
		return ExitNotAuthorized
	case errors.Is(err, gdhttp.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, downloader.ErrNoContentLength):
		return ExitNoContentLength
	case errors.Is(err, downloader.ErrStorage):
		return ExitStorageError
	case errors.Is(err, gdhttp.ErrTransport), errors.Is(err, gdhttp.ErrServerError):
		return ExitTransportError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTransportError
	default:
		return ExitGeneralError
	}
}

// fail prints err and returns its exit code.
func fail(err error) int {
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitCode(err)
}
