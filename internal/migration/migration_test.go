package migration

import (
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The sqlite-backed service tests create their schema with AutoMigrate, so
// they never exercise the shipped DDL. These checks keep the embedded
// migration in agreement with the column names the repositories write
// explicitly in their conditional updates.
func TestInitMigrationDeclaresRepositoryColumns(t *testing.T) {
	ddl, err := embeddedMigrations.ReadFile("migrations/000001_init.up.sql")
	require.NoError(t, err)

	tables := map[string][]string{
		"documents":           {"status", "approved_by", "approved_at", "updated_at"},
		"validation_projects": {"status", "approver_id", "approved_at", "rejection_reason", "updated_at"},
		"change_requests":     {"status", "approver_id", "implemented_at", "updated_at"},
		"risk_assessments":    {"status", "approver_id", "approved_at", "rejection_reason", "updated_at"},
	}
	for table, columns := range tables {
		body := tableBody(t, string(ddl), table)
		for _, column := range columns {
			require.Regexpf(t, regexp.MustCompile(`(?m)^\s+`+column+`\s`), body,
				"table %s is missing column %s", table, column)
		}
	}
}

func tableBody(t *testing.T, ddl, table string) string {
	t.Helper()

	marker := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (", table)
	start := strings.Index(ddl, marker)
	require.GreaterOrEqual(t, start, 0, "table %s not found", table)
	rest := ddl[start+len(marker):]
	end := strings.Index(rest, ");")
	require.GreaterOrEqual(t, end, 0)
	return rest[:end]
}
