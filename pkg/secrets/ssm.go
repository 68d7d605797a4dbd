package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trading-dashboard/config"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

const lookupTimeout = 5 * time.Second

// ParameterGetter is the subset of the SSM client used here.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type Resolver struct {
	client ParameterGetter
}

func NewResolver(client ParameterGetter) *Resolver {
	return &Resolver{client: client}
}

// NewSSMResolver builds a resolver from the default AWS credential chain.
func NewSSMResolver(ctx context.Context) (*Resolver, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewResolver(ssm.NewFromConfig(awsCfg)), nil
}

// Get returns the decrypted value of a SecureString parameter.
func (r *Resolver) Get(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	decrypt := true
	result, err := r.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &decrypt,
	})
	if err != nil {
		return "", fmt.Errorf("failed to get parameter %s: %w", name, err)
	}
	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", errors.New("parameter " + name + " has no value")
	}
	return *result.Parameter.Value, nil
}

// NeedsResolve reports whether any password in cfg points at Parameter Store.
func NeedsResolve(cfg *config.Config) bool {
	return cfg.DB.PasswordSSMParam != "" || cfg.TimeSeries.PasswordSSMParam != ""
}

// ResolvePasswords replaces database passwords configured as SSM parameter names.
func (r *Resolver) ResolvePasswords(ctx context.Context, cfg *config.Config) error {
	if cfg.DB.PasswordSSMParam != "" {
		password, err := r.Get(ctx, cfg.DB.PasswordSSMParam)
		if err != nil {
			return err
		}
		cfg.DB.Password = password
	}
	if cfg.TimeSeries.PasswordSSMParam != "" {
		password, err := r.Get(ctx, cfg.TimeSeries.PasswordSSMParam)
		if err != nil {
			return err
		}
		cfg.TimeSeries.Password = password
	}
	return nil
}
