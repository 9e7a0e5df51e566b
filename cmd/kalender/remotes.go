package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/kalender/internal/config"
)

// RemotesConfig holds all named remotes and tracks which one is active.
type RemotesConfig struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named content-store profile.
type Remote struct {
	ProjectID string `toml:"project_id"`
	Dataset   string `toml:"dataset,omitempty"`
	APIHost   string `toml:"api_host,omitempty"`
	// ReadToken is used for reads from private datasets. Write tokens are
	// always passed on the command line.
	ReadToken string `toml:"read_token,omitempty"`
	NATSURL   string `toml:"nats_url,omitempty"`
}

func remoteConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "kalender")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

func loadRemotesConfig() (RemotesConfig, error) {
	path, err := remoteConfigPath()
	if err != nil {
		return RemotesConfig{}, err
	}
	var cfg RemotesConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return RemotesConfig{Remotes: map[string]Remote{}}, nil
		}
		return RemotesConfig{}, err
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

func saveRemotesConfig(cfg RemotesConfig) error {
	path, err := remoteConfigPath()
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Remotes file contents, loaded once per process.
var (
	remotesOnce   sync.Once
	cachedRemotes RemotesConfig
	remotesErr    error
)

func loadRemotesOnce() (RemotesConfig, error) {
	remotesOnce.Do(func() {
		cachedRemotes, remotesErr = loadRemotesConfig()
	})
	return cachedRemotes, remotesErr
}

// selectedRemote returns the named remote, or the active one when name is
// empty. A nil remote with no error means none is selected.
func selectedRemote(name string) (*Remote, string, error) {
	cfg, err := loadRemotesOnce()
	if err != nil {
		return nil, "", fmt.Errorf("reading remotes: %w", err)
	}
	if name == "" {
		name = cfg.Active
	}
	if name == "" {
		return nil, "", nil
	}
	r, ok := cfg.Remotes[name]
	if !ok {
		return nil, "", fmt.Errorf("remote %q not found", name)
	}
	return &r, name, nil
}

// applyRemote fills store settings the environment left empty. Dataset is
// taken from the remote only while it still has its default value.
func applyRemote(cfg *config.Config, r Remote) {
	if cfg.ProjectID == "" {
		cfg.ProjectID = r.ProjectID
	}
	if r.Dataset != "" && os.Getenv("KALENDER_DATASET") == "" {
		cfg.Dataset = r.Dataset
	}
	if cfg.APIHost == "" {
		cfg.APIHost = r.APIHost
	}
	if cfg.ReadToken == "" {
		cfg.ReadToken = r.ReadToken
	}
	if cfg.NATSURL == "" {
		cfg.NATSURL = r.NATSURL
	}
}

// maskToken keeps the first n characters of a token and replaces the rest
// with mask.
func maskToken(token string, n int, mask func(hidden int) string) string {
	if len(token) <= n {
		return token
	}
	return token[:n] + mask(len(token)-n)
}
