package provider

import (
	"fmt"
	"time"

	"horus-go/internal/config"
	"horus-go/internal/horus"
)

const (
	defaultRemoteTimeout = 5 * time.Second
	defaultS3Timeout     = 30 * time.Second
)

// NewProviderFromConfig creates a Provider implementation based on the
// provider config type. Remote providers connect immediately.
func NewProviderFromConfig(cfg config.ProviderConfig) (horus.Provider, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryProvider(), nil
	case "local":
		return NewLocalProvider(cfg.Root)
	case "remote":
		timeout, err := cfg.ParsedTimeout(defaultRemoteTimeout)
		if err != nil {
			return nil, err
		}
		return NewRemoteProvider(RemoteConfig{
			Host:                  cfg.Host,
			Port:                  cfg.Port,
			User:                  cfg.SSHUser,
			KeyPath:               cfg.KeyPath,
			KnownHostsPath:        cfg.KnownHostsPath,
			InsecureIgnoreHostKey: cfg.InsecureIgnoreHostKey,
			Root:                  cfg.Root,
			Sudo:                  cfg.Sudo,
			Timeout:               timeout,
		})
	case "s3":
		timeout, err := cfg.ParsedTimeout(defaultS3Timeout)
		if err != nil {
			return nil, err
		}
		return NewS3Provider(S3Config{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Timeout:         timeout,
		})
	default:
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
}

// Candidates turns the configured providers, in order, into resolver
// candidates. Nothing is opened until the resolver asks.
func Candidates(cfgs []config.ProviderConfig) []horus.Candidate {
	candidates := make([]horus.Candidate, 0, len(cfgs))
	for _, cfg := range cfgs {
		cfg := cfg
		candidates = append(candidates, horus.Candidate{
			Mode: cfg.Type,
			Open: func() (horus.Provider, error) { return NewProviderFromConfig(cfg) },
		})
	}
	return candidates
}
