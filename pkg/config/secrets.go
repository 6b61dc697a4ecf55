package config

import (
	"context"
	"fmt"
	"log/slog"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretSource looks up an API key by its environment variable name.
type SecretSource interface {
	Secret(ctx context.Context, name string) (string, error)
}

type SecretManagerSource struct {
	client  *secretmanager.Client
	project string
}

func NewSecretManagerSource(ctx context.Context, project, credentialsFile string) (*SecretManagerSource, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}

	return &SecretManagerSource{client: client, project: project}, nil
}

func (s *SecretManagerSource) Secret(ctx context.Context, name string) (string, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.project, name),
	})
	if err != nil {
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	return string(resp.GetPayload().GetData()), nil
}

func (s *SecretManagerSource) Close() error {
	return s.client.Close()
}

// resolveSecrets fills keys that are still empty after the environment was
// read. A key missing from the source is left empty; providers that need it
// fail when they are built.
func resolveSecrets(ctx context.Context, cfg *Config, src SecretSource) error {
	for _, f := range cfg.secretFields() {
		if *f.value != "" {
			continue
		}
		v, err := src.Secret(ctx, f.name)
		if err != nil {
			slog.Debug("Secret not available", "name", f.name, "error", err)
			continue
		}
		*f.value = v
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("resolve secrets: %w", err)
	}
	return nil
}
