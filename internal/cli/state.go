// internal/cli/state.go
package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
)

// LocalWallet is a wallet whose seed the terminal client holds.
type LocalWallet struct {
	Address     string    `json:"classic_address"`
	Seed        string    `json:"seed"`
	AccessToken string    `json:"access_token,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// State is the persisted wallet list and current selection.
type State struct {
	Wallets []LocalWallet `json:"wallets"`
	Current string        `json:"current,omitempty"`

	mu   sync.Mutex
	path string
}

// LoadState reads path, returning an empty state when it does not exist.
func LoadState(path string) (*State, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, errors.Wrapf(err, "expand %s", path)
	}

	state := &State{path: expanded}
	raw, err := os.ReadFile(expanded)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read state %s", expanded)
	}

	if err := json.Unmarshal(raw, state); err != nil {
		return nil, errors.Wrapf(err, "decode state %s", expanded)
	}
	return state, nil
}

// Path is the file the state is saved to.
func (s *State) Path() string {
	return s.path
}

// Save writes the state atomically with owner-only permissions since it
// holds seeds.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create state directory")
	}

	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode state")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "write state")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replace state")
}

// Add records w, replacing any wallet with the same address. The first
// wallet added becomes the current one.
func (s *State) Add(w LocalWallet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Wallets {
		if s.Wallets[i].Address == w.Address {
			s.Wallets[i] = w
			return
		}
	}
	s.Wallets = append(s.Wallets, w)
	if s.Current == "" {
		s.Current = w.Address
	}
}

// Select makes address current.
func (s *State) Select(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.Wallets {
		if w.Address == address {
			s.Current = address
			return nil
		}
	}
	return errors.Errorf("Unknown wallet: %s (try `rwa wallet list`).", address)
}

// Remove forgets address, clearing the selection if it was current.
func (s *State) Remove(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range s.Wallets {
		if w.Address == address {
			s.Wallets = append(s.Wallets[:i], s.Wallets[i+1:]...)
			if s.Current == address {
				s.Current = ""
			}
			return nil
		}
	}
	return errors.Errorf("Unknown wallet: %s.", address)
}

// Find returns the wallet for address.
func (s *State) Find(address string) (*LocalWallet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.Wallets {
		if s.Wallets[i].Address == address {
			w := s.Wallets[i]
			return &w, true
		}
	}
	return nil, false
}

// CurrentWallet returns the selected wallet.
func (s *State) CurrentWallet() (*LocalWallet, error) {
	if s.Current == "" {
		return nil, errors.New("No wallet selected (try `rwa wallet create` or `rwa wallet select`).")
	}
	w, ok := s.Find(s.Current)
	if !ok {
		return nil, errors.Errorf("Selected wallet %s is missing from local state.", s.Current)
	}
	return w, nil
}
