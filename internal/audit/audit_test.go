package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditor_SaveJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	auditor := NewAuditor(dir)

	report := map[string]any{
		"mappingName":    "users",
		"processedCount": 3,
		"errors":         []string{"boom"},
	}

	filename, err := auditor.SaveJSON("users", report)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filename, "users-"))
	assert.True(t, strings.HasSuffix(filename, ".json"))

	content, err := os.ReadFile(filepath.Join(dir, filename))
	require.NoError(t, err)

	var saved map[string]any
	require.NoError(t, json.Unmarshal(content, &saved))
	assert.Equal(t, "users", saved["mappingName"])
	assert.Equal(t, float64(3), saved["processedCount"])
	assert.Equal(t, []any{"boom"}, saved["errors"])

	// No temp files are left behind.
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestAuditor_SaveJSON_UniqueNames(t *testing.T) {
	auditor := NewAuditor(t.TempDir())

	first, err := auditor.SaveJSON("", map[string]string{"k": "v"})
	require.NoError(t, err)
	second, err := auditor.SaveJSON("", map[string]string{"k": "v"})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestAuditor_SaveJSON_UnmarshalableData(t *testing.T) {
	auditor := NewAuditor(t.TempDir())

	_, err := auditor.SaveJSON("bad", map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
