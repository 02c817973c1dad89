// Package config defines configuration structures for the gdown CLI.
//
// Configuration is layered, later sources winning:
//   - Defaults
//   - YAML configuration file
//   - Environment variables (GDOWN_ prefix)
//   - Command-line flags
//
// # Structure
//
//	type Config struct {
//	    FileID          string
//	    AuthMode        string   // service_account | token
//	    CredentialsFile string
//	    CredentialsEnv  string
//	    TokenEnv        string
//	    Scopes          []string
//	    APIBase         string
//	    DownloadDir     string
//	    Bucket          string
//	    BufferSize      int64
//	    Timeout         time.Duration
//	    Progress        bool
//	}
package config
