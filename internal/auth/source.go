package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/oauth2"

	gdhttp "github.com/ligustah/gdown/internal/http"
)

var log = logging.Logger("gdown/auth")

// Credential modes.
const (
	ModeServiceAccount = "service_account"
	ModeToken          = "token"
)

// DefaultScopes grants read access to file metadata and content.
var DefaultScopes = []string{
	"https://www.googleapis.com/auth/drive.metadata.readonly",
	"https://www.googleapis.com/auth/drive.readonly",
}

// Source produces the access token for a run.
type Source interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// Options selects and configures a credential source.
type Options struct {
	// Mode is ModeServiceAccount or ModeToken.
	Mode string

	// CredentialsFile is the service-account key file.
	CredentialsFile string

	// CredentialsEnv names a variable holding the service-account JSON.
	// When set and non-empty it takes precedence over CredentialsFile.
	CredentialsEnv string

	// TokenEnv names the variable holding a pre-issued token.
	TokenEnv string

	// Scopes requested in service-account mode.
	// Default: DefaultScopes
	Scopes []string

	// Client performs the token exchange.
	Client *gdhttp.Client

	// Now returns the current time. Default: time.Now
	Now func() time.Time

	// LookupEnv reads environment variables. Default: os.LookupEnv
	LookupEnv func(string) (string, bool)
}

// NewSource loads the credential material for opts.Mode. Secrets are read
// here so that configuration errors surface before any network call.
func NewSource(opts Options) (Source, error) {
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	switch opts.Mode {
	case ModeToken:
		s := &EnvSource{Var: opts.TokenEnv, LookupEnv: opts.LookupEnv}
		if _, err := s.Token(context.Background()); err != nil {
			return nil, err
		}
		return s, nil

	case ModeServiceAccount, "":
		var (
			sa  *ServiceAccount
			err error
		)
		if v, ok := opts.LookupEnv(opts.CredentialsEnv); opts.CredentialsEnv != "" && ok && v != "" {
			log.Debugw("using service account from environment", "var", opts.CredentialsEnv)
			sa, err = ParseServiceAccount([]byte(v))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", opts.CredentialsEnv, err)
			}
		} else {
			log.Debugw("using service account file", "path", opts.CredentialsFile)
			sa, err = LoadServiceAccountFile(opts.CredentialsFile)
			if err != nil {
				return nil, err
			}
		}

		scopes := opts.Scopes
		if len(scopes) == 0 {
			scopes = DefaultScopes
		}
		client := opts.Client
		if client == nil {
			client = gdhttp.NewClient(gdhttp.DefaultOptions())
		}
		return &ServiceAccountSource{
			Account: sa,
			Scopes:  scopes,
			Client:  client,
			Now:     opts.Now,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown auth mode %q", ErrConfig, opts.Mode)
	}
}

// ServiceAccountSource obtains a token with a signed JWT assertion.
type ServiceAccountSource struct {
	Account *ServiceAccount
	Scopes  []string
	Client  *gdhttp.Client
	Now     func() time.Time
}

// Token signs a fresh assertion and exchanges it. The key is parsed before
// any request is made.
func (s *ServiceAccountSource) Token(ctx context.Context) (*oauth2.Token, error) {
	key, err := s.Account.RSAKey()
	if err != nil {
		return nil, err
	}

	now := s.Now()
	claims := NewClaimSet(s.Account, s.Scopes, now)
	assertion, err := SignAssertion(claims, key, s.Account.PrivateKeyID)
	if err != nil {
		return nil, err
	}

	log.Debugw("exchanging assertion", "iss", claims.Iss, "aud", claims.Aud, "exp", claims.Exp)
	token, err := Exchange(ctx, s.Client, s.Account.TokenURI, assertion, now)
	if err != nil {
		return nil, err
	}
	log.Debugw("token acquired", "type", token.Type(), "expiry", token.Expiry)
	return token, nil
}

// EnvSource reads a pre-issued bearer token from an environment variable.
type EnvSource struct {
	Var       string
	LookupEnv func(string) (string, bool)
}

// Token returns the token held in s.Var.
func (s *EnvSource) Token(context.Context) (*oauth2.Token, error) {
	lookup := s.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if s.Var == "" {
		return nil, fmt.Errorf("%w: no token variable configured", ErrConfig)
	}

	v, ok := lookup(s.Var)
	if !ok || v == "" {
		return nil, fmt.Errorf("%w: environment variable %s is not set", ErrConfig, s.Var)
	}

	static := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: v, TokenType: "Bearer"})
	return static.Token()
}
