// internal/cli/config.go
package cli

import (
	"os"

	"github.com/BurntSushi/toml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

const (
	defaultConfigPath = "~/.rwa/config.toml"
	defaultStatePath  = "~/.rwa/state.json"
	defaultLogPath    = "~/.rwa/debug.log"
)

// Config is read from ~/.rwa/config.toml. Missing keys keep their
// defaults and a missing file is not an error.
type Config struct {
	APIURL      string `toml:"api_url"`
	LedgerURL   string `toml:"ledger_url"`
	ExplorerURL string `toml:"explorer_url"`
	// PollAttempts bounds how often a pending ledger result is re-checked.
	PollAttempts int `toml:"poll_attempts"`
	// PollInterval is in seconds.
	PollInterval int `toml:"poll_interval"`
}

func DefaultConfig() Config {
	return Config{
		APIURL:       "http://localhost:5000",
		LedgerURL:    "https://s.altnet.rippletest.net:51234",
		ExplorerURL:  "https://testnet.xrpl.org",
		PollAttempts: 10,
		PollInterval: 4,
	}
}

// LoadConfig reads path over the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expand %s", path)
	}

	if _, err := os.Stat(expanded); os.IsNotExist(err) {
		return &config, nil
	}

	if _, err := toml.DecodeFile(expanded, &config); err != nil {
		return nil, errors.Wrapf(err, "read config %s", expanded)
	}

	return &config, nil
}
