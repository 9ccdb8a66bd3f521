package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stretchr/testify/require"
)

func TestIngestCmd_SingleFile(t *testing.T) {
	logger = zap.NewNop()
	ws := t.TempDir()
	workspace = ws
	defer func() { workspace = "" }()

	docPath := filepath.Join(ws, "doc.md")
	require.NoError(t, os.WriteFile(docPath, []byte("hello ingest world"), 0644))

	configPath = filepath.Join(ws, "config.yaml")
	ingestLabel = "topic"
	ingestSource = ""
	ingestURLContext = ""
	defer func() { ingestLabel, ingestSource, ingestURLContext = "", "", "" }()

	require.NoError(t, runIngest(&cobra.Command{}, []string{docPath}))
}

func TestIngestCmd_DirectoryBuildsSectionHeaders(t *testing.T) {
	ws := t.TempDir()
	docDir := filepath.Join(ws, "docs")
	require.NoError(t, os.MkdirAll(docDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "a.md"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(docDir, "b.md"), []byte("beta"), 0644))

	info, err := os.Stat(docDir)
	require.NoError(t, err)

	content, err := buildIngestContent(docDir, info)
	require.NoError(t, err)
	require.Contains(t, string(content), "=== a.md ===")
	require.Contains(t, string(content), "=== b.md ===")
	require.Contains(t, string(content), "alpha")
	require.Contains(t, string(content), "beta")
}

func TestPickOrDefault(t *testing.T) {
	require.Equal(t, 5, pickOrDefault(5, 10))
	require.Equal(t, 10, pickOrDefault(0, 10))
}
