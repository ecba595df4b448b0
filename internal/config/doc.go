// Package config defines configuration structures for the nsisdl CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (NSISDL_ prefix, also read from a .env file)
//   - YAML configuration file
//
// Flags override the environment, which overrides the file.
//
// # Structure
//
//	type Config struct {
//	    URL       string
//	    Output    string
//	    ChunkSize int64
//	    Progress  bool
//	    LogLevel  string
//	    HTTP      HTTPConfig
//	}
//
//	type HTTPConfig struct {
//	    Timeout           time.Duration
//	    ConnectTimeout    time.Duration
//	    InactivityTimeout time.Duration
//	    MaxRedirects      int
//	    UserAgent         string
//	    Headers           map[string]string
//	}
package config
