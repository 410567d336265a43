package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplement-safety/backend/internal/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportGetAssess(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "data", "cli.db")
	importPath := filepath.Join(dir, "users.yaml")
	require.NoError(t, os.WriteFile(importPath, []byte(`
users:
  - uid: kim
    age: 67
    gender: 남성
    diseases: [신장질환, 고혈압]
    medications: [암로디핀]
  - uid: lee
    diseases: [없음]
`), 0o600))

	out, err := run(t, "--db", db, "import", importPath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 profiles")

	out, err = run(t, "--db", db, "get", "kim")
	require.NoError(t, err)
	var profile map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &profile))
	assert.EqualValues(t, 67, profile["age"])
	assert.Equal(t, []any{"신장질환", "고혈압"}, profile["diseases"])

	out, err = run(t, "--db", db, "assess", "마그네슘", "--uid", "kim")
	require.NoError(t, err)
	var assessment map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &assessment))
	assert.Equal(t, "danger", assessment["overallSafety"])
	assert.Equal(t, []any{"신장질환 환자에게 마그네슘은 위험할 수 있습니다."}, assessment["reasons"])

	out, err = run(t, "--db", db, "assess", "Vitamin C", "--uid", "lee")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &assessment))
	assert.Equal(t, "비타민C", assessment["name"])
	assert.Equal(t, "safe", assessment["overallSafety"])

	_, err = run(t, "--db", db, "get", "nobody")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestAssessWithoutStore(t *testing.T) {
	out, err := run(t, "assess", "홍삼", "--disease", "당뇨병", "--disease", "고혈압")
	require.NoError(t, err)
	var assessment map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &assessment))
	assert.Equal(t, "danger", assessment["overallSafety"])
	assert.Len(t, assessment["reasons"], 2)

	_, err = run(t, "assess", "dish soap")
	assert.Error(t, err)
}

func TestPopular(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "cli.db")
	db, err := store.Open(dbFile, true)
	require.NoError(t, err)
	for _, name := range []string{"홍삼", "홍삼", "루테인"} {
		require.NoError(t, db.SaveAnalysis(&store.Analysis{UID: "kim", Kind: store.KindPredict, SupplementName: name}))
	}
	require.NoError(t, db.Close())

	out, err := run(t, "--db", dbFile, "popular")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "홍삼"))

	jsonPath := filepath.Join(dir, "popular.json")
	_, err = run(t, "--db", dbFile, "popular", "--output", jsonPath, "--limit", "1")
	require.NoError(t, err)
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var rows []store.SupplementCount
	require.NoError(t, json.Unmarshal(data, &rows))
	assert.Equal(t, []store.SupplementCount{{SupplementName: "홍삼", Total: 2}}, rows)
}
