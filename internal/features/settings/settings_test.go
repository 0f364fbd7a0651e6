package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"volleylevel.by/academy-bot/internal/common"
	"volleylevel.by/academy-bot/internal/features/progression"
)

type mapStore map[string]string

func (m mapStore) GetAll(context.Context) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

func (m mapStore) SetMany(_ context.Context, values map[string]string) error {
	for k, v := range values {
		m[k] = v
	}
	return nil
}

func TestXPConfigDefaults(t *testing.T) {
	svc := NewService(mapStore{}, progression.DefaultXPConfig())
	cfg, err := svc.XPConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, progression.DefaultXPConfig(), cfg)
}

func TestSetXPConfigRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := mapStore{}
	svc := NewService(store, progression.DefaultXPConfig())

	require.NoError(t, svc.SetXPConfig(ctx, progression.XPConfig{XPPerLevel: 500, Multiplier: 1.5}))
	assert.Equal(t, "500", store[KeyXPPerLevel])
	assert.Equal(t, "1.5", store[KeyXPMultiplier])

	cfg, err := svc.XPConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, progression.XPConfig{XPPerLevel: 500, Multiplier: 1.5}, cfg)
}

func TestSetXPConfigRejectsInvalid(t *testing.T) {
	store := mapStore{}
	svc := NewService(store, progression.DefaultXPConfig())
	err := svc.SetXPConfig(context.Background(), progression.XPConfig{XPPerLevel: 500, Multiplier: 1})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	assert.Empty(t, store)
}

func TestXPConfigFallsBackOnCorruptValues(t *testing.T) {
	store := mapStore{KeyXPPerLevel: "-10", KeyXPMultiplier: "1.3"}
	svc := NewService(store, progression.DefaultXPConfig())
	cfg, err := svc.XPConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, progression.DefaultXPConfig(), cfg)
}
