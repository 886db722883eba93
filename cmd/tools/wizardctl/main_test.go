package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"divorce-wizard/internal/documents/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func TestQuestionsDump(t *testing.T) {
	out, err := run(t, "questions", "dump")
	require.NoError(t, err)
	assert.Contains(t, out, `"property"`)

	out, err = run(t, "questions", "dump", "custody")
	require.NoError(t, err)
	assert.Contains(t, out, `"requestedArrangement"`)

	out, err = run(t, "questions", "dump", "custody", "--schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"$schema"`)

	_, err = run(t, "questions", "dump", "pets")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(data, []byte(`{
		"basicInfo": {"fullName": "דנה כהן", "idNumber": "000000018"},
		"selectedClaims": ["divorce"],
		"formData": {}
	}`), 0o600))

	out, err := run(t, "render", "divorce", "--data", data, "--out", dir)
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(dir, "divorce.docx"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("PK")))
}

func TestRender_UnknownTemplate(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(data, []byte(`{}`), 0o600))

	_, err := run(t, "render", "nope", "--data", data, "--out", dir)
	assert.ErrorIs(t, err, template.ErrTemplateNotFound)
}
