// internal/cli/cli_test.go
package cli

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	args, flags := ParseArgs([]string{"market", "list", "NFT1", "12.5", "--offer", "--metadata-hash=abc", "-debug"})

	assert.Equal(t, []string{"market", "list", "NFT1", "12.5"}, args)
	assert.Equal(t, map[string]string{
		"offer":         "true",
		"metadata-hash": "abc",
		"debug":         "true",
	}, flags)
}

func TestStateSelection(t *testing.T) {
	state, err := LoadState(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	_, err = state.CurrentWallet()
	assert.Error(t, err)

	state.Add(LocalWallet{Address: "rFirst", Seed: "s1"})
	state.Add(LocalWallet{Address: "rSecond", Seed: "s2"})
	assert.Equal(t, "rFirst", state.Current)

	assert.Error(t, state.Select("rMissing"))
	require.NoError(t, state.Select("rSecond"))

	current, err := state.CurrentWallet()
	require.NoError(t, err)
	assert.Equal(t, "s2", current.Seed)

	state.Add(LocalWallet{Address: "rSecond", Seed: "s2b"})
	assert.Len(t, state.Wallets, 2)

	require.NoError(t, state.Remove("rSecond"))
	assert.Empty(t, state.Current)
	assert.Error(t, state.Remove("rSecond"))
}

func TestStatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")

	state, err := LoadState(path)
	require.NoError(t, err)
	state.Add(LocalWallet{Address: "rFirst", Seed: "s1", AccessToken: "tok"})
	require.NoError(t, state.Save())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadState(path)
	require.NoError(t, err)
	assert.Equal(t, "rFirst", loaded.Current)
	require.Len(t, loaded.Wallets, 1)
	assert.Equal(t, "tok", loaded.Wallets[0].AccessToken)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	config, err := LoadConfig(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *config)

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_url = \"http://api.test\"\npoll_attempts = 2\n"), 0o600))

	config, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://api.test", config.APIURL)
	assert.Equal(t, 2, config.PollAttempts)
	assert.Equal(t, DefaultConfig().LedgerURL, config.LedgerURL)

	require.NoError(t, os.WriteFile(path, []byte("api_url = "), 0o600))
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestBackgroundDeliversResult(t *testing.T) {
	var buf bytes.Buffer
	Output = &buf
	SpinnerInterval = time.Millisecond

	value, err := Background(context.Background(), "Working...", func(ctx context.Context) (interface{}, error) {
		time.Sleep(10 * time.Millisecond)
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	assert.Contains(t, buf.String(), "Working...")

	boom := errors.New("boom")
	_, err = Background(context.Background(), "Failing...", func(ctx context.Context) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBackgroundCancels(t *testing.T) {
	Output = &bytes.Buffer{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Background(ctx, "Waiting...", func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoll(t *testing.T) {
	calls := 0
	err := Poll(context.Background(), 5, time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Poll(context.Background(), 2, time.Millisecond, func(ctx context.Context) (bool, error) {
		calls++
		return false, nil
	})
	assert.ErrorIs(t, err, ErrStillPending)
	assert.Equal(t, 2, calls)
}

func TestClientErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"success":true,"response":{"address":"rX"}}`))
		case "/conflict":
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"success":false,"error":"NFT is already listed"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")

	status, raw, err := client.Post(context.Background(), "/ok", map[string]string{"a": "b"}, "tok")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	var body struct {
		Address string `json:"address"`
	}
	require.NoError(t, Envelope(raw, &body))
	assert.Equal(t, "rX", body.Address)

	_, _, err = client.Get(context.Background(), "/conflict")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "NFT is already listed", apiErr.Message)

	_, _, err = client.Get(context.Background(), "/other")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}
