package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rlm/internal/logging"
)

var (
	ingestLabel      string
	ingestSource     string
	ingestURLContext string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "ingest a file or directory into the document store under a topic label",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestLabel, "label", "l", "", "topic label to group this document under (required)")
	ingestCmd.Flags().StringVarP(&ingestSource, "source", "s", "", `origin string, e.g. "github:owner/repo" or "url:<url>" (defaults to "local:<path>")`)
	ingestCmd.Flags().StringVar(&ingestURLContext, "url-context", "", "URL template used to resolve citations for files in this document")
	_ = ingestCmd.MarkFlagRequired("label")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	root := args[0]
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}

	content, err := buildIngestContent(root, info)
	if err != nil {
		return err
	}

	source := ingestSource
	if source == "" {
		source = "local:" + root
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()
	id, err := st.Store(ctx, content, filepath.Base(root), source, ingestLabel, ingestURLContext)
	if err != nil {
		return fmt.Errorf("store document: %w", err)
	}

	if logger != nil {
		logger.Info("ingested document", zap.String("id", id), zap.String("label", ingestLabel), zap.Int("bytes", len(content)))
	}
	logging.Get(logging.CategoryBoot).Info("ingested %s as %s (label=%s, %d bytes)", root, id, ingestLabel, len(content))
	fmt.Printf("ingested %s: id=%s label=%s bytes=%d\n", root, id, ingestLabel, len(content))
	return nil
}

// buildIngestContent reads a single file verbatim, or walks a directory
// concatenating every regular file's contents under a "=== <relpath> ==="
// section header so the store's section-header scanner can recover a
// per-file table of contents (see internal/store's ListFiles contract).
func buildIngestContent(root string, info os.FileInfo) ([]byte, error) {
	if !info.IsDir() {
		return os.ReadFile(root)
	}

	var b strings.Builder
	err := filepath.Walk(root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logging.Get(logging.CategoryBoot).Warn("skipping unreadable file %s: %v", path, err)
			return nil
		}
		fmt.Fprintf(&b, "=== %s ===\n", filepath.ToSlash(rel))
		b.Write(data)
		if len(data) == 0 || data[len(data)-1] != '\n' {
			b.WriteByte('\n')
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return []byte(b.String()), nil
}
