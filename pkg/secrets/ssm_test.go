package secrets

import (
	"context"
	"errors"
	"testing"

	"trading-dashboard/config"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	values    map[string]string
	decrypted []bool
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.decrypted = append(f.decrypted, in.WithDecryption != nil && *in.WithDecryption)
	v, ok := f.values[*in.Name]
	if !ok {
		return nil, errors.New("ParameterNotFound")
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: &v}}, nil
}

func TestResolver_ResolvePasswords(t *testing.T) {
	client := &fakeSSM{values: map[string]string{
		"/dashboard/db":         "s3cret",
		"/dashboard/timeseries": "ts-s3cret",
	}}
	cfg := &config.Config{
		DB:         config.Database{Password: "plain", PasswordSSMParam: "/dashboard/db"},
		TimeSeries: config.TimeSeries{PasswordSSMParam: "/dashboard/timeseries"},
	}

	require.True(t, NeedsResolve(cfg))
	require.NoError(t, NewResolver(client).ResolvePasswords(context.Background(), cfg))

	assert.Equal(t, "s3cret", cfg.DB.Password)
	assert.Equal(t, "ts-s3cret", cfg.TimeSeries.Password)
	assert.Equal(t, []bool{true, true}, client.decrypted)
}

func TestResolver_MissingParameter(t *testing.T) {
	cfg := &config.Config{DB: config.Database{Password: "plain", PasswordSSMParam: "/missing"}}

	err := NewResolver(&fakeSSM{}).ResolvePasswords(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/missing")
	assert.Equal(t, "plain", cfg.DB.Password)
}

func TestNeedsResolve(t *testing.T) {
	assert.False(t, NeedsResolve(&config.Config{}))
}
