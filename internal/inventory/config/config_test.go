package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rackd.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	require.NoError(t, LoadConfig(""))
	assert.Equal(t, "8420", Config().ServerPort)
	assert.Equal(t, int64(100000), Config().AssetNumberMin)
	assert.Equal(t, int64(999999), Config().AssetNumberMax)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
server_port = "9000"
db_name = "inventory_test"
asset_number_min = 200000
asset_number_max = 299999
pdu_controller_url = "http://pdu.internal:8080"
`)
	require.NoError(t, LoadConfig(path))
	assert.Equal(t, "9000", Config().ServerPort)
	assert.Equal(t, "inventory_test", Config().DBName)
	assert.Equal(t, int64(200000), Config().AssetNumberMin)
	assert.Equal(t, "http://pdu.internal:8080", Config().PDUControllerURL)
	// untouched keys keep their defaults
	assert.Equal(t, "5432", Config().DBPort)
}

func TestLoadConfigEmptyPool(t *testing.T) {
	path := writeConfig(t, `
asset_number_min = 500000
asset_number_max = 400000
`)
	assert.Error(t, LoadConfig(path))
}

func TestLoadConfigMissingFile(t *testing.T) {
	assert.Error(t, LoadConfig(filepath.Join(t.TempDir(), "absent.toml")))
}

func TestDsn(t *testing.T) {
	require.NoError(t, LoadConfig(""))
	dsn := Dsn()
	assert.Contains(t, dsn, "dbname=rackd")
	assert.Contains(t, dsn, "sslmode=disable")
}
