package interpreter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"rlm/internal/llmclient"
	"rlm/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestLLM() *llmclient.Client {
	return llmclient.New(llmclient.Config{BaseURL: "http://127.0.0.1:1", Model: "test-model"})
}

func TestSession_GlobalsPersistAcrossExecuteCalls(t *testing.T) {
	sess, err := Spawn(newTestStore(t), newTestLLM(), nil)
	require.NoError(t, err)
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = sess.Execute(ctx, `x := 21`)
	require.NoError(t, err)

	out, err := sess.Execute(ctx, `fmt.Println(x * 2)`)
	require.NoError(t, err)
	require.Equal(t, "42", strings.TrimSpace(out))
}

func TestSession_BlockedImportFailsAtEvalTime(t *testing.T) {
	sess, err := Spawn(newTestStore(t), newTestLLM(), nil)
	require.NoError(t, err)
	defer sess.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := sess.Execute(ctx, `import "os"`)
	require.NoError(t, err) // interpreter errors surface in output text, not as a Go error
	require.Contains(t, out, "Error: ")
}

func TestSession_DocumentPrimitivesSeeIngestedContent(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id, err := st.Store(ctx, []byte("=== a.txt ===\nhello sandboxed world\n"), "doc.txt", "test", "", "")
	require.NoError(t, err)

	meta, err := st.GetMeta(ctx, id)
	require.NoError(t, err)

	sess, err := Spawn(st, newTestLLM(), []store.DocumentMeta{meta})
	require.NoError(t, err)
	defer sess.Close()

	out, err := sess.Execute(ctx, `
files, _ := listFiles(documents[0].DocID)
fmt.Println(len(files))
`)
	require.NoError(t, err)
	require.Equal(t, "1", strings.TrimSpace(out))

	out, err = sess.Execute(ctx, fmt.Sprintf(`content, _ := readFile("%s", "a.txt")
fmt.Println(content)`, id))
	require.NoError(t, err)
	require.Contains(t, out, "hello sandboxed world")

	access := sess.DrainAccess()
	require.NotEmpty(t, access)
}

func TestSession_ShutdownLeavesNoGoroutinesBehind(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := newTestStore(t)
	sess, err := Spawn(st, newTestLLM(), nil)
	require.NoError(t, err)
	sess.Close()

	select {
	case <-sess.died:
	case <-time.After(2 * time.Second):
		t.Fatal("interpreter loop did not shut down in time")
	}

	// The store's database handle owns a goroutine of its own; close it
	// before the leak check so only session goroutines are verified.
	require.NoError(t, st.Close())
}
