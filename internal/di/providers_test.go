package di

import (
	"context"
	"testing"

	"QuantLab/internal/domain/models"
	internalrepo "QuantLab/internal/repository"
	"QuantLab/internal/service/cache"
	"QuantLab/internal/usecase"
	"QuantLab/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Log.Output = "stderr"
	cfg.Log.Level = "error"
	return cfg
}

func TestInitializeAppWithoutInfrastructure(t *testing.T) {
	app, cleanup, err := InitializeApp(localConfig(t))
	require.NoError(t, err)
	require.NotNil(t, app)
	cleanup()
}

func TestInitializeUseCaseWithoutStore(t *testing.T) {
	uc, cleanup, err := InitializeUseCase(localConfig(t))
	require.NoError(t, err)
	defer cleanup()

	_, err = uc.PairsFromStore(context.Background(), models.PairsQuery{Ticker1: "KO", Ticker2: "PEP"})
	assert.ErrorIs(t, err, usecase.ErrStoreDisabled)
}

func TestOptionalProviders(t *testing.T) {
	cfg := localConfig(t)

	cfg.Cache.Enabled = false
	c, cleanup, err := ProvideCache(cfg, nil)
	require.NoError(t, err)
	cleanup()
	assert.IsType(t, cache.Nop{}, c)

	cfg.Cache.Enabled = true
	c, _, err = ProvideCache(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &cache.TTLCache{}, c)

	assert.Nil(t, ProvidePriceStore(nil, cfg, nil))
	assert.IsType(t, internalrepo.NopPublisher{}, ProvideEventPublisher(nil, cfg))

	consumer, err := ProvideKafkaConsumer(cfg, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, consumer)
}
