package registry_test

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/ajitpratap0/nebula-migrate/pkg/config"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/core"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/memory"
	"github.com/ajitpratap0/nebula-migrate/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-migrate/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryFactory(cfg *config.ConnectorConfig) (core.Connector, error) {
	return memory.New(cfg), nil
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("mem", memoryFactory, &registry.ConnectorInfo{Version: "1.0.0"}))

	assert.True(t, r.Has("mem"))
	assert.False(t, r.Has("postgres"))

	info, ok := r.Info("mem")
	require.True(t, ok)
	assert.Equal(t, "mem", info.Name)

	conn, err := r.Create(&config.ConnectorConfig{Name: "scratch", Type: "mem"})
	require.NoError(t, err)
	assert.Equal(t, "scratch", conn.Name())
	assert.Equal(t, memory.ConnectorType, conn.Type())
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("mem", memoryFactory, nil))

	tests := []struct {
		name    string
		regName string
		factory registry.Factory
	}{
		{"duplicate", "mem", memoryFactory},
		{"empty name", "", memoryFactory},
		{"nil factory", "other", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.regName, tt.factory, nil)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "got %v", err)
		})
	}

	_, ok := r.Info("mem")
	assert.False(t, ok, "nil info is not stored")
}

func TestRegistry_CreateErrors(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("mem", memoryFactory, nil))
	require.NoError(t, r.Register("broken", func(*config.ConnectorConfig) (core.Connector, error) {
		return nil, stderrors.New("bad params")
	}, nil))

	_, err := r.Create(nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	_, err = r.Create(&config.ConnectorConfig{Name: "x", Type: "nope"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = r.Create(&config.ConnectorConfig{Type: "mem"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig), "missing name fails validation")

	_, err = r.Create(&config.ConnectorConfig{Name: "x", Type: "broken"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "bad params")
}

func TestRegistry_ListSortedAndClear(t *testing.T) {
	r := registry.NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, r.Register(name, memoryFactory, nil))
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, r.List())

	r.Clear()
	assert.Empty(t, r.List())
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := registry.NewRegistry()
	require.NoError(t, r.Register("mem", memoryFactory, nil))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Create(&config.ConnectorConfig{Name: "c", Type: "mem"})
			assert.NoError(t, err)
			_ = r.List()
		}()
	}
	wg.Wait()
}

func TestGlobalRegistry_IncludesSelfRegisteredConnectors(t *testing.T) {
	assert.True(t, registry.Has(memory.ConnectorType))
	assert.Contains(t, registry.List(), memory.ConnectorType)

	info, ok := registry.Info(memory.ConnectorType)
	require.True(t, ok)
	assert.Contains(t, info.Capabilities, "load")

	assert.Panics(t, func() {
		registry.Register(memory.ConnectorType, memoryFactory, nil)
	})
}
