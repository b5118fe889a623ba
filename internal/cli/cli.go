// internal/cli/cli.go

// Package cli is the terminal client for the RWA backend. Commands live in
// the command subpackage and register themselves through Registrar.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/rwa-backend/internal/ledger"
)

// CmdName represents a command name.
type CmdName string

// ContextKey is the type of the key used with context to contextual data.
type ContextKey string

const envKey ContextKey = "cli.env"

// ErrStillPending is returned when the ledger has not validated a
// transaction after polling.
var ErrStillPending = errors.New("transaction not yet validated, check again later")

// Command is the interface for a cli command.
type Command interface {
	// Name returns the command name.
	Name() CmdName

	// Help prints out the help message for the command.
	Help(context.Context)

	// Parse the arguments passed to the command.
	Parse(context.Context, []string) error

	// Execute the command or return a human-friendly error.
	Execute(context.Context) error
}

// Registrar is used to register command generators within the module.
var Registrar = map[CmdName](func() Command){}

// Env carries what commands need: config, local wallets, the backend API
// and the ledger node used for signing.
type Env struct {
	Config *Config
	State  *State
	API    *Client
	Ledger ledger.Gateway
	Flags  map[string]string
}

// WithEnv stores env in ctx.
func WithEnv(ctx context.Context, env *Env) context.Context {
	return context.WithValue(ctx, envKey, env)
}

// GetEnv returns the env stored in ctx.
func GetEnv(ctx context.Context) *Env {
	return ctx.Value(envKey).(*Env)
}

// PollInterval returns the configured pause between ledger checks.
func (e *Env) PollInterval() time.Duration {
	return time.Duration(e.Config.PollInterval) * time.Second
}

// Cli represents a cli instance.
type Cli struct {
	Ctx   context.Context
	Flags map[string]string
	Args  []string
}

// flagFilterRegexp filters out flags from arguments.
var flagFilterRegexp = regexp.MustCompile("^-+")

// ParseArgs splits argv into positional arguments and --key=value flags.
// A bare --key is recorded as "true".
func ParseArgs(argv []string) ([]string, map[string]string) {
	args := []string{}
	flags := map[string]string{}

	for _, a := range argv {
		if flagFilterRegexp.MatchString(a) {
			a = strings.TrimLeft(a, "-")
			if k, v, ok := strings.Cut(a, "="); ok {
				flags[k] = v
			} else {
				flags[a] = "true"
			}
		} else {
			args = append(args, strings.TrimSpace(a))
		}
	}
	return args, flags
}

// New initializes a new Cli by parsing the passed arguments and loading
// config and local state.
func New(argv []string) (*Cli, error) {
	args, flags := ParseArgs(argv)

	configPath := defaultConfigPath
	if p, ok := flags["config"]; ok {
		configPath = p
	}
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if u, ok := flags["api"]; ok {
		config.APIURL = u
	}
	if u, ok := flags["ledger"]; ok {
		config.LedgerURL = u
	}

	if err := setupLogging(flags["debug"] == "true"); err != nil {
		return nil, err
	}

	statePath := defaultStatePath
	if p, ok := flags["state"]; ok {
		statePath = p
	}
	state, err := LoadState(statePath)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config: config,
		State:  state,
		API:    NewClient(config.APIURL),
		Ledger: ledger.NewClient(ledger.Config{
			NodeURL:     config.LedgerURL,
			ExplorerURL: config.ExplorerURL,
		}),
		Flags: flags,
	}

	logrus.WithFields(logrus.Fields{
		"api":    config.APIURL,
		"ledger": config.LedgerURL,
	}).Debug("Initialized")

	return &Cli{
		Ctx:   WithEnv(context.Background(), env),
		Args:  args,
		Flags: flags,
	}, nil
}

// setupLogging sends logrus to ~/.rwa/debug.log with --debug and
// discards it otherwise so it never mixes with command output.
func setupLogging(debug bool) error {
	if !debug {
		logrus.SetOutput(io.Discard)
		return nil
	}

	path, err := homedir.Expand(defaultLogPath)
	if err != nil {
		return errors.Wrap(err, "expand log path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create log directory")
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	logrus.SetOutput(file)
	logrus.SetLevel(logrus.DebugLevel)
	return nil
}

// Run the cli.
func (c *Cli) Run() error {
	if len(c.Args) == 0 {
		c.Args = append(c.Args, "help")
	}

	var command Command
	cmd, args := c.Args[0], c.Args[1:]
	if r, ok := Registrar[CmdName(cmd)]; !ok {
		command = Registrar[CmdName("help")]()
	} else {
		command = r()
	}

	if err := command.Parse(c.Ctx, args); err != nil {
		command.Help(c.Ctx)
		return err
	}

	return command.Execute(c.Ctx)
}
