package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Index.Backend)
	assert.Equal(t, "postgres", cfg.Audit.Backend)
	assert.Equal(t, 20*time.Second, cfg.Pipeline.OracleTimeout)
	assert.Equal(t, 5, cfg.Pipeline.ProfileContextHits)
	assert.Equal(t, 3, cfg.Pipeline.FloatContextHits)
	assert.Equal(t, "argo_profiles", cfg.Pipeline.ProfileCollection)
	assert.Equal(t, 384, cfg.OpenAI.EmbeddingDimensions)
	assert.False(t, cfg.OpenAI.Enabled)
	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Index.ElasticsearchAddresses)
	assert.Equal(t, 1000, cfg.Index.WarmLimit)
	assert.True(t, cfg.NeedsPostgres())
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password= dbname=floatchat sslmode=disable",
		cfg.GetPostgreSQLDSN())
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]interface{}{
		"database_url":                  "postgres://argo@db:5432/argo",
		"openai.api_key":                "sk-test",
		"index.backend":                 "elasticsearch",
		"index.elasticsearch_addresses": "http://es1:9200, http://es2:9200",
		"audit.backend":                 "log",
		"pipeline.oracle_timeout":       "5s",
	}))
	require.NoError(t, err)

	assert.Equal(t, "postgres://argo@db:5432/argo", cfg.GetPostgreSQLDSN())
	assert.True(t, cfg.OpenAI.Enabled)
	assert.Equal(t, []string{"http://es1:9200", "http://es2:9200"}, cfg.Index.ElasticsearchAddresses)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.OracleTimeout)
	assert.False(t, cfg.NeedsPostgres())
}

func TestFromViper_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
		want string
	}{
		{"index backend", "index.backend", "faiss", "index.backend"},
		{"audit backend", "audit.backend", "kafka", "audit.backend"},
		{"oracle timeout", "pipeline.oracle_timeout", "0s", "oracle_timeout"},
		{"negative hits", "pipeline.float_context_hits", -1, "negative"},
		{"negative warm limit", "index.warm_limit", -5, "warm_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fromViper(newTestViper(map[string]interface{}{tt.key: tt.val}))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a, ,b ,"))
	assert.Empty(t, splitList(""))
}
