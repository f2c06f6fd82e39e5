package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/homeschool-tracker/config"
	"github.com/warp/homeschool-tracker/homeschool"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "sqlite", c.Backend)
	assert.Equal(t, filepath.Join("data", "homeschool.db"), c.Path())
	assert.Empty(t, c.AllowedOrigins)
	assert.Equal(t, homeschool.DefaultDefaults(), c.Defaults)
}

func TestLoad_Environment(t *testing.T) {
	// GIVEN: HST_* variables
	t.Setenv("HST_PORT", "9090")
	t.Setenv("HST_BACKEND", "Badger")
	t.Setenv("HST_ALLOWEDORIGINS", "http://a.test, http://b.test")
	t.Setenv("HST_DEFAULTS_CHILDREN", "Ada, Ben")
	t.Setenv("HST_DEFAULTS_SUBJECTS", "Math,,Nature Study")

	// WHEN: Loading
	c, err := config.Load("")
	require.NoError(t, err)

	// THEN: They override the defaults
	assert.Equal(t, 9090, c.Port)
	assert.Equal(t, "badger", c.Backend)
	assert.Equal(t, filepath.Join("data", "badger"), c.Path())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.AllowedOrigins)
	assert.Equal(t, []string{"Ada", "Ben"}, c.Defaults.Children)
	assert.Equal(t, []string{"Math", "Nature Study"}, c.Defaults.Subjects)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HST_BACKEND=memory\nHST_DATAPATH=/tmp/x\n"), 0o644))
	// godotenv.Load sets process variables; register them for cleanup.
	t.Setenv("HST_BACKEND", "")
	t.Setenv("HST_DATAPATH", "")
	os.Unsetenv("HST_BACKEND")
	os.Unsetenv("HST_DATAPATH")

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", c.Backend)
	assert.Equal(t, "/tmp/x", c.Path())
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.env"))
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("HST_BACKEND", "postgres")
	_, err := config.Load("")
	assert.ErrorContains(t, err, "unknown backend")

	t.Setenv("HST_BACKEND", "memory")
	t.Setenv("HST_PORT", "70000")
	_, err = config.Load("")
	assert.ErrorContains(t, err, "port")
}
