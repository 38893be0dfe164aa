package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, n := range names {
		switch {
		case strings.HasSuffix(n, ".up.sql"):
			ups[strings.TrimSuffix(n, ".up.sql")] = true
		case strings.HasSuffix(n, ".down.sql"):
			downs[strings.TrimSuffix(n, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file %q", n)
		}
	}
	assert.Equal(t, ups, downs)
}

func TestUsageSchemaKeyedByModelAndField(t *testing.T) {
	raw, err := sqlMigrations.ReadFile("sql/000001_usage_stats.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "usage_stats")
	assert.Contains(t, string(raw), "PRIMARY KEY (model, field)")
}
