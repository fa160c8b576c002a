package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	type cfg struct {
		Port int    `env:"TEST_LOADER_PORT" envDefault:"8080"`
		Env  string `env:"TEST_LOADER_ENV" envDefault:"development"`
	}

	var c cfg
	require.NoError(t, Load(&c))
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "development", c.Env)
}

func TestLoad_FromEnvironment(t *testing.T) {
	type cfg struct {
		Port int `env:"TEST_LOADER_PORT2" envDefault:"8080"`
	}

	t.Setenv("TEST_LOADER_PORT2", "9191")

	var c cfg
	require.NoError(t, Load(&c))
	assert.Equal(t, 9191, c.Port)
}

func TestLoad_InvalidValue(t *testing.T) {
	type cfg struct {
		Port int `env:"TEST_LOADER_PORT3"`
	}

	t.Setenv("TEST_LOADER_PORT3", "not-a-number")

	var c cfg
	assert.Error(t, Load(&c))
}
