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

func TestAuditor(t *testing.T) {
	tempDir := filepath.Join(t.TempDir(), "reports")
	auditor := NewAuditor(tempDir)

	t.Run("SaveJSON creates audit directory and saves file", func(t *testing.T) {
		testData := map[string]interface{}{
			"state":   "completed",
			"created": 42,
			"stages":  []string{"users", "titles"},
		}

		path, err := auditor.SaveJSON("run-1", testData)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(tempDir, "run-1.json"), path)

		fileContent, err := os.ReadFile(path)
		require.NoError(t, err)

		var savedData map[string]interface{}
		require.NoError(t, json.Unmarshal(fileContent, &savedData))

		assert.Equal(t, "completed", savedData["state"])
		assert.Equal(t, float64(42), savedData["created"]) // JSON unmarshals numbers as float64
		assert.Equal(t, []interface{}{"users", "titles"}, savedData["stages"])
	})

	t.Run("SaveJSON generates unique filenames without a name", func(t *testing.T) {
		path1, err := auditor.SaveJSON("", map[string]string{"key": "value"})
		require.NoError(t, err)
		path2, err := auditor.SaveJSON("", map[string]string{"key": "value"})
		require.NoError(t, err)

		assert.NotEqual(t, path1, path2)
		assert.True(t, strings.HasSuffix(path1, ".json"))
	})

	t.Run("SaveJSON rejects unmarshalable data", func(t *testing.T) {
		_, err := auditor.SaveJSON("bad", map[string]any{"ch": make(chan int)})
		assert.ErrorContains(t, err, "failed to marshal")
	})
}
