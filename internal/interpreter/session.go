// Package interpreter runs a persistent, sandboxed yaegi session per
// exploration run: one Go interpreter whose declared variables and
// imports survive across Execute calls, with a fixed set of document
// primitives injected into its scope and every dangerous stdlib package
// left unregistered so importing one fails at eval time.
package interpreter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"rlm/internal/llmclient"
	"rlm/internal/logging"
	"rlm/internal/rlmerr"
	"rlm/internal/store"
)

// AccessRecord is one (doc_id, filename) pair observed by readFile/listFiles,
// drained by the Exploration Loop when it accepts a final answer to feed
// citation resolution.
type AccessRecord struct {
	DocID    string
	Filename string
}

type execRequest struct {
	code  string
	reply chan execReply
}

type execReply struct {
	output string
	err    error
}

type bridgeJob struct {
	fn   func(ctx context.Context) (any, error)
	resp chan bridgeResult
}

type bridgeResult struct {
	val any
	err error
}

// primitiveTimeout bounds every Store/LLM call a script primitive makes
// through the bridge worker.
const primitiveTimeout = 30 * time.Second

// Session is a persistent sandboxed script session. Its interpreter runs
// on a dedicated OS thread pinned with runtime.LockOSThread, receiving
// code submissions over a plain (non-select-driven) channel so the thread
// never competes with the Go scheduler the way a goroutine pooled among
// many others would.
type Session struct {
	reqCh  chan execRequest
	workCh chan bridgeJob
	died   chan struct{}

	accessMu sync.Mutex
	access   []AccessRecord
}

// stdoutMu serializes the process-wide os.Stdout redirect across sessions;
// yaegi scripts share one process stdout the way the original's PyO3
// StringIO swap did, so overlapping Execute calls from distinct sessions
// still need to take turns rather than interleave output.
var stdoutMu sync.Mutex

// Spawn starts the session's bridge worker and dedicated interpreter
// thread, builds the yaegi interpreter, and injects the document
// primitives. It blocks until the interpreter has finished initializing
// (or failed to).
func Spawn(st *store.Store, llm *llmclient.Client, docs []store.DocumentMeta) (*Session, error) {
	s := &Session{
		reqCh:  make(chan execRequest),
		workCh: make(chan bridgeJob),
		died:   make(chan struct{}),
	}

	go s.bridgeLoop()

	initErr := make(chan error, 1)
	go s.interpreterLoop(st, llm, docs, initErr)

	if err := <-initErr; err != nil {
		close(s.workCh)
		return nil, err
	}
	return s, nil
}

// bridgeLoop services Store/LLM calls issued by primitive closures that
// run on the interpreter's locked OS thread, so those calls round-trip
// through a worker the interpreter thread doesn't itself own.
func (s *Session) bridgeLoop() {
	for job := range s.workCh {
		ctx, cancel := context.WithTimeout(context.Background(), primitiveTimeout)
		val, err := job.fn(ctx)
		cancel()
		job.resp <- bridgeResult{val: val, err: err}
	}
}

// runOnBridge hands work to the bridge goroutine and waits for its reply.
// Called from primitive closures executing on the interpreter's locked
// OS thread.
func (s *Session) runOnBridge(fn func(ctx context.Context) (any, error)) (any, error) {
	resp := make(chan bridgeResult, 1)
	s.workCh <- bridgeJob{fn: fn, resp: resp}
	r := <-resp
	return r.val, r.err
}

// preamble is evaluated once at session start. The dot import puts every
// injected primitive directly into scope so scripts call them unqualified,
// matching the document-access globals the original exposed to its
// sandboxed code.
const preamble = `import . "rlm/session"
import "fmt"
import "strings"
import "strconv"
import "sort"
import "math"
`

// interpreterLoop builds the yaegi interpreter once, then blocks on a
// plain channel receive for each code submission until reqCh is closed.
func (s *Session) interpreterLoop(st *store.Store, llm *llmclient.Client, docs []store.DocumentMeta, initErr chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.died)

	i := interp.New(interp.Options{})
	if err := i.Use(filteredStdlib()); err != nil {
		initErr <- fmt.Errorf("load restricted stdlib: %w", err)
		return
	}
	if err := i.Use(s.primitiveExports(st, llm, docs)); err != nil {
		initErr <- fmt.Errorf("inject document primitives: %w", err)
		return
	}
	if _, err := i.Eval(preamble); err != nil {
		initErr <- fmt.Errorf("load session preamble: %w", err)
		return
	}
	initErr <- nil

	logging.Interpreter("persistent session initialized")
	for req := range s.reqCh {
		output, err := s.executeCapturingStdout(i, req.code)
		req.reply <- execReply{output: output, err: err}
	}
	logging.Interpreter("persistent session shutting down")
}

// filteredStdlib returns only the stdlib packages safe for sandboxed
// scripts to import: no os, os/exec, net, net/http, syscall, unsafe, or
// plugin symbols are ever registered, so an `import` of any of them fails
// at eval time with a yaegi "package not found" error.
func filteredStdlib() interp.Exports {
	allowed := []string{"fmt/fmt", "strings/strings", "strconv/strconv", "sort/sort", "math/math"}
	out := make(interp.Exports, len(allowed))
	for _, pkg := range allowed {
		if syms, ok := stdlib.Symbols[pkg]; ok {
			out[pkg] = syms
		}
	}
	return out
}

// Execute submits code to the session and waits for its captured stdout
// (with the interpreter error, prefixed by "Error: ", appended on a failed
// Eval, never returned as a Go error) or for ctx cancellation.
func (s *Session) Execute(ctx context.Context, code string) (string, error) {
	reply := make(chan execReply, 1)
	select {
	case s.reqCh <- execRequest{code: code, reply: reply}:
	case <-s.died:
		return "", rlmerr.ErrSessionDied
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case r := <-reply:
		return r.output, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close shuts the session down: closing the request channel causes the
// interpreter loop to return and unlock its OS thread. No explicit stop
// is needed beyond the two channel closes.
func (s *Session) Close() {
	close(s.reqCh)
	close(s.workCh)
}

// DrainAccess returns and clears the (doc_id, filename) access records
// observed since the last drain.
func (s *Session) DrainAccess() []AccessRecord {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	recs := s.access
	s.access = nil
	return recs
}

func (s *Session) recordAccess(docID, filename string) {
	s.accessMu.Lock()
	s.access = append(s.access, AccessRecord{DocID: docID, Filename: filename})
	s.accessMu.Unlock()
}

// executeCapturingStdout redirects the process-wide os.Stdout through a
// pipe for the duration of one Eval call and restores it afterwards,
// whether or not the Eval failed.
func (s *Session) executeCapturingStdout(i *interp.Interpreter, code string) (string, error) {
	stdoutMu.Lock()
	defer stdoutMu.Unlock()

	origOut := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", fmt.Errorf("create stdout pipe: %w", err)
	}
	os.Stdout = w

	done := make(chan string, 1)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	_, evalErr := i.Eval(code)

	_ = w.Close()
	os.Stdout = origOut
	output := <-done

	if evalErr != nil {
		logging.InterpreterWarn("execution error: %v", evalErr)
		return fmt.Sprintf("%s\nError: %s", output, evalErr), nil
	}
	logging.InterpreterDebug("executed successfully, output_len=%d", len(output))
	return output, nil
}
