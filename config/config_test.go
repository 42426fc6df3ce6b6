package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"instaplan/models"
)

var (
	containerA = strings.Repeat("a", 32)
	containerB = strings.Repeat("b", 32)
)

const sample = `
credential = "ntn_default"

[server]
port = 8080
allowed_origins = ["https://example.com"]

[notion]
sort_property = "Publication"
timeout = "10s"

[[sources]]
id = "perso"
label = "Perso"
container_id = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

[[sources]]
id = "client"
container_id = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
credential = "secret_client"
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instaplan.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig(writeFile(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "ntn_default", config.Credential)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, []string{"https://example.com"}, config.Server.AllowedOrigins)
	assert.Equal(t, "Publication", config.Notion.SortProperty)
	assert.Equal(t, 10*time.Second, config.Notion.Timeout)
	assert.Equal(t, DefaultPageSize, config.Notion.PageSize)
	require.Len(t, config.Sources, 2)
	assert.Equal(t, containerB, config.Sources[1].ContainerId)
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(writeFile(t, ""))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, config.Server.Port)
	assert.Equal(t, []string{"*"}, config.Server.AllowedOrigins)
	assert.Equal(t, DefaultTimeout, config.Notion.Timeout)
	assert.Empty(t, config.Sources)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadConfig(writeFile(t, "credential = "))
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestLoadOrDefault(t *testing.T) {
	config, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, config.Server.Port)
}

func TestResolvedSources(t *testing.T) {
	config, err := LoadConfig(writeFile(t, sample))
	require.NoError(t, err)

	sources := config.ResolvedSources()
	assert.Equal(t, "ntn_default", sources[0].Credential)
	assert.Equal(t, "secret_client", sources[1].Credential)
	assert.Empty(t, config.Sources[0].Credential)
}

func TestResolvedSourcesNormalizeContainerIds(t *testing.T) {
	config, err := LoadConfig(writeFile(t, `
credential = "ntn_default"

[[sources]]
container_id = "0123abcd-0123-abcd-0123-0123456789ab"

[[sources]]
container_id = "not-an-id"
`))
	require.NoError(t, err)

	sources := config.ResolvedSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "0123abcd0123abcd01230123456789ab", sources[0].ContainerId)
	assert.Equal(t, "0123abcd0123abcd01230123456789ab", sources[0].Key())
	assert.Equal(t, "not-an-id", sources[1].ContainerId)
	assert.Equal(t, "0123abcd-0123-abcd-0123-0123456789ab", config.Sources[0].ContainerId)
}

func TestFindSource(t *testing.T) {
	config, err := LoadConfig(writeFile(t, sample))
	require.NoError(t, err)

	src, ok := config.FindSource("perso")
	require.True(t, ok)
	assert.Equal(t, containerA, src.ContainerId)

	src, ok = config.FindSource("Perso")
	require.True(t, ok)
	assert.Equal(t, "perso", src.Id)

	_, ok = config.FindSource("unknown")
	assert.False(t, ok)
}

func TestAddSource(t *testing.T) {
	config := Default()
	config.Credential = "ntn_default"

	require.NoError(t, config.AddSource(models.Source{ContainerId: "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa", Label: "Perso"}))
	assert.Equal(t, containerA, config.Sources[0].ContainerId)
	assert.Equal(t, containerA, config.Sources[0].Id)

	err := config.AddSource(models.Source{ContainerId: containerA})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "id", verr.Field)

	err = config.AddSource(models.Source{Id: "x", ContainerId: "short"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "containerId", verr.Field)

	config.Credential = ""
	err = config.AddSource(models.Source{Id: "y", ContainerId: containerB})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "credential", verr.Field)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	config, err := LoadConfig(writeFile(t, sample))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "instaplan.toml")
	require.NoError(t, SaveConfig(path, config))

	reloaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config, reloaded)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("INSTAPLAN_TEST_VALUE=from-file\n"), 0o600))
	t.Setenv("INSTAPLAN_TEST_VALUE", "")
	os.Unsetenv("INSTAPLAN_TEST_VALUE")

	loaded := LoadEnv(path, filepath.Join(dir, "missing.env"))
	assert.Equal(t, []string{path}, loaded)
	assert.Equal(t, "from-file", os.Getenv("INSTAPLAN_TEST_VALUE"))
}

func TestLoadEnvKeepsProcessValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("INSTAPLAN_TEST_KEEP=from-file\n"), 0o600))
	t.Setenv("INSTAPLAN_TEST_KEEP", "from-process")

	LoadEnv(path)
	assert.Equal(t, "from-process", os.Getenv("INSTAPLAN_TEST_KEEP"))
}
