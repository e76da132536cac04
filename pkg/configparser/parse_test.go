package configparser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string        `env:"CP_TEST_NAME" default:"dispatch"`
	Port    int           `env:"CP_TEST_PORT" default:"3000"`
	Conns   int32         `env:"CP_TEST_CONNS" default:"4"`
	Rate    float64       `env:"CP_TEST_RATE" default:"0.2"`
	Enabled bool          `env:"CP_TEST_ENABLED" default:"false"`
	Timeout time.Duration `env:"CP_TEST_TIMEOUT" default:"2s"`
	Brokers []string      `env:"CP_TEST_BROKERS" default:"a:9092, b:9092"`
	Secret  string        `env:"CP_TEST_SECRET"`

	Nested struct {
		Host string `env:"CP_TEST_NESTED_HOST" default:"localhost"`
	}
}

func TestParseEnv_Defaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, "dispatch", cfg.Name)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, int32(4), cfg.Conns)
	assert.InDelta(t, 0.2, cfg.Rate, 1e-9)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers)
	assert.Empty(t, cfg.Secret)
	assert.Equal(t, "localhost", cfg.Nested.Host)
}

func TestParseEnv_EnvOverridesDefault(t *testing.T) {
	t.Setenv("CP_TEST_PORT", "8080")
	t.Setenv("CP_TEST_ENABLED", "true")
	t.Setenv("CP_TEST_TIMEOUT", "150ms")
	t.Setenv("CP_TEST_NESTED_HOST", "db")

	var cfg testConfig
	require.NoError(t, ParseEnv(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 150*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "db", cfg.Nested.Host)
}

func TestParseEnv_InvalidValue(t *testing.T) {
	t.Setenv("CP_TEST_PORT", "not-a-number")

	var cfg testConfig
	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CP_TEST_PORT")
}

func TestParseEnv_RejectsNonPointer(t *testing.T) {
	assert.ErrorIs(t, ParseEnv(testConfig{}), ErrNotStructPointer)
}

func TestLoadYamlFile_Substitution(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "cp_yaml:\n  host: ${CP_YAML_HOST_SRC:-fallback}\n  port: \"5432\"\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CP_YAML_HOST", "")
	t.Setenv("CP_YAML_PORT", "")
	require.NoError(t, LoadYamlFile(path))

	assert.Equal(t, "fallback", os.Getenv("CP_YAML_HOST"))
	assert.Equal(t, "5432", os.Getenv("CP_YAML_PORT"))
}

func TestLoadAndParseYaml_MissingFileUsesDefaults(t *testing.T) {
	var cfg testConfig
	require.NoError(t, LoadAndParseYaml(filepath.Join(t.TempDir(), "absent.yaml"), &cfg))
	assert.Equal(t, "dispatch", cfg.Name)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadYamlFile_NestedSectionsAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `# top
cp_nested:
  http:
    read_timeout: 5s # inline
  name: "a # b"
  ref: ${CP_NESTED_SRC}
cp_other: "x"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("CP_NESTED_HTTP_READ_TIMEOUT", "")
	t.Setenv("CP_NESTED_NAME", "")
	t.Setenv("CP_NESTED_REF", "")
	t.Setenv("CP_NESTED_SRC", "from-env")
	t.Setenv("CP_OTHER", "")
	require.NoError(t, LoadYamlFile(path))

	assert.Equal(t, "5s", os.Getenv("CP_NESTED_HTTP_READ_TIMEOUT"))
	assert.Equal(t, "a # b", os.Getenv("CP_NESTED_NAME"))
	assert.Equal(t, "from-env", os.Getenv("CP_NESTED_REF"))
	assert.Equal(t, "x", os.Getenv("CP_OTHER"))
}

func TestLoadYamlFile_BadIndent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cp_bad:\n      key: v\n"), 0o600))
	assert.Error(t, LoadYamlFile(path))
}
