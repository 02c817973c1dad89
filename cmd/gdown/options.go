package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/oauth2"

	"github.com/ligustah/gdown/internal/auth"
	"github.com/ligustah/gdown/internal/config"
	"github.com/ligustah/gdown/internal/drive"
	gdhttp "github.com/ligustah/gdown/internal/http"
)

// commonFlags are shared by every subcommand.
type commonFlags struct {
	configPath  string
	fileID      string
	authMode    string
	credentials string
	tokenEnv    string
	apiBase     string
	timeout     time.Duration
	verbose     bool
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.fileID, "file-id", "", "Identifier of the file (or pass it as the first argument)")
	fs.StringVar(&f.authMode, "auth-mode", "", "Credential mode: service_account or token")
	fs.StringVar(&f.credentials, "credentials", "", "Service-account key file (default credentials.json)")
	fs.StringVar(&f.tokenEnv, "token-env", "", "Environment variable holding a pre-issued token (default GDOWN_ACCESS_TOKEN)")
	fs.StringVar(&f.apiBase, "api-base", "", "Files API base URL")
	fs.DurationVar(&f.timeout, "timeout", 0, "Abort the whole run after this duration (0 = no limit)")
	fs.BoolVar(&f.verbose, "verbose", false, "Enable debug logging")
}

// load layers defaults, the config file, the environment and flags.
func (f *commonFlags) load(fs *flag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	fileID := f.fileID
	if fileID == "" && fs.NArg() > 0 {
		fileID = fs.Arg(0)
	}

	cfg = cfg.Merge(config.Config{
		FileID:          fileID,
		AuthMode:        f.authMode,
		CredentialsFile: f.credentials,
		TokenEnv:        f.tokenEnv,
		APIBase:         f.apiBase,
		Timeout:         f.timeout,
	})

	if f.verbose {
		logging.SetAllLoggers(logging.LevelDebug)
	}
	return cfg, nil
}

// runContext returns a context cancelled on SIGINT/SIGTERM and, when set,
// after the configured timeout.
func runContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// session holds what a run shares between steps. The token is acquired
// once and passed explicitly to every request.
type session struct {
	cfg   config.Config
	drive *drive.Client
	token *oauth2.Token
}

func openSession(ctx context.Context, cfg config.Config) (*session, error) {
	hc := gdhttp.NewClient(gdhttp.DefaultOptions())

	src, err := auth.NewSource(auth.Options{
		Mode:            cfg.AuthMode,
		CredentialsFile: cfg.CredentialsFile,
		CredentialsEnv:  cfg.CredentialsEnv,
		TokenEnv:        cfg.TokenEnv,
		Scopes:          cfg.Scopes,
		Client:          hc,
	})
	if err != nil {
		return nil, err
	}

	token, err := src.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}
	log.Debugw("session ready", "mode", cfg.AuthMode, "expiry", token.Expiry)

	return &session{
		cfg:   cfg,
		drive: drive.NewClient(hc, cfg.APIBase),
		token: token,
	}, nil
}
