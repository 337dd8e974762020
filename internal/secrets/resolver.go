package secrets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	pkgsecrets "github.com/Checker-Finance/trade-ingest/pkg/secrets"
	"github.com/Checker-Finance/trade-ingest/pkg/utils"
)

// Credentials is the upstream feed API access config.
type Credentials struct {
	BaseURL string
	APIKey  string
}

// Resolver resolves feed credentials from AWS Secrets Manager, caching the
// result locally and falling back to environment values when the secret is
// unavailable.
//
// Secret naming convention: {env}/trade-ingest/api
type Resolver struct {
	logger   *zap.Logger
	env      string
	provider pkgsecrets.Provider
	cache    *pkgsecrets.Cache[Credentials]
	fallback Credentials
}

// NewResolver constructs a credentials resolver. A nil provider disables the
// remote lookup and Resolve serves the fallback directly.
func NewResolver(
	logger *zap.Logger,
	env string,
	provider pkgsecrets.Provider,
	cache *pkgsecrets.Cache[Credentials],
	fallback Credentials,
) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		logger:   logger,
		env:      env,
		provider: provider,
		cache:    cache,
		fallback: fallback,
	}
}

// secretName builds the AWS Secrets Manager key.
func (r *Resolver) secretName() string {
	return strings.ToLower(fmt.Sprintf("%s/trade-ingest/api", r.env))
}

// Resolve returns the feed credentials, preferring the cached secret, then
// AWS Secrets Manager, then the environment fallback.
func (r *Resolver) Resolve(ctx context.Context) (Credentials, error) {
	name := r.secretName()

	if r.cache != nil {
		if creds, ok := r.cache.Get(name); ok {
			return creds, nil
		}
	}

	if r.provider != nil {
		secretMap, err := r.provider.GetSecret(ctx, name)
		if err != nil {
			r.logger.Warn("secrets.fetch_failed",
				zap.String("key", name),
				zap.Error(err))
		} else {
			creds, perr := parseCredentials(secretMap)
			if perr != nil {
				r.logger.Warn("secrets.parse_failed",
					zap.String("key", name),
					zap.Error(perr))
			} else {
				if r.cache != nil {
					r.cache.Put(name, creds)
				}
				r.logger.Info("secrets.credentials_resolved",
					zap.String("key", name),
					zap.String("api_key", utils.MaskKey(creds.APIKey)))
				return creds, nil
			}
		}
	}

	if r.fallback.BaseURL == "" && r.fallback.APIKey == "" {
		return Credentials{}, fmt.Errorf("no credentials available for %q", name)
	}

	r.logger.Info("secrets.using_env_fallback",
		zap.String("api_key", utils.MaskKey(r.fallback.APIKey)))
	return r.fallback, nil
}

func parseCredentials(m map[string]string) (Credentials, error) {
	creds := Credentials{
		BaseURL: m["base_url"],
		APIKey:  m["api_key"],
	}
	if creds.APIKey == "" {
		return Credentials{}, fmt.Errorf("secret missing api_key")
	}
	if creds.BaseURL == "" {
		return Credentials{}, fmt.Errorf("secret missing base_url")
	}
	return creds, nil
}
