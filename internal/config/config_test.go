package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("WORKFLOW_OVERRIDE_POLICY", "")
	t.Setenv("CATALOG_CACHE_TTL_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, OverrideStrict, cfg.Workflow.OverridePolicy)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CatalogCacheTTL)
	assert.Equal(t, "migrations", cfg.Postgres.MigrationsDir)
	assert.Empty(t, cfg.Postgres.DSN)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	t.Setenv("WORKFLOW_OVERRIDE_POLICY", "whatever")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseOverridePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want OverridePolicy
		err  bool
	}{
		{in: "strict", want: OverrideStrict},
		{in: " Trusted ", want: OverrideTrusted},
		{in: "", want: OverrideStrict},
		{in: "open", err: true},
	}
	for _, tt := range tests {
		got, err := ParseOverridePolicy(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAppConfig_RequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{RequestTimeoutSeconds: 0}.RequestTimeout())
	assert.Equal(t, 3*time.Second, AppConfig{RequestTimeoutSeconds: 3}.RequestTimeout())
	assert.Equal(t, "0.0.0.0:8080", AppConfig{Host: "0.0.0.0", Port: "8080"}.Addr())
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList(" 4, 7,,")
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 7}, ids)

	ids, err = parseIDList("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseIDList("4,x")
	assert.Error(t, err)
	_, err = parseIDList("-1")
	assert.Error(t, err)
}
