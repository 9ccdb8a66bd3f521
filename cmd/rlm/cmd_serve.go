package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"rlm/internal/logging"
	"rlm/internal/orchestrator"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the orchestrator's query API over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "address to listen on")
	rootCmd.AddCommand(serveCmd)
}

type queryRequest struct {
	Topic             string `json:"topic"`
	Question          string `json:"question"`
	MaxIterations     int    `json:"max_iterations"`
	MinCodeExecutions int    `json:"min_code_executions"`
	MinAnswerLen      int    `json:"min_answer_len"`
	ParallelLoops     int    `json:"parallel_loops"`
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	llm := newLLMClient(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
			return
		}

		resp, err := orchestrator.Query(r.Context(), st, llm, orchestrator.Params{
			Topic:             req.Topic,
			Question:          req.Question,
			MaxIterations:     pickOrDefault(req.MaxIterations, cfg.Gates.MaxIterations),
			MinCodeExecutions: pickOrDefault(req.MinCodeExecutions, cfg.Gates.MinCodeExecutions),
			MinAnswerLen:      pickOrDefault(req.MinAnswerLen, cfg.Gates.MinAnswerLen),
			ParallelLoops:     pickOrDefault(req.ParallelLoops, cfg.Gates.ParallelLoops),
		})
		if err != nil {
			logging.OrchestratorError("query handler failed for topic=%q: %v", req.Topic, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	logging.Get(logging.CategoryBoot).Info("rlm serve listening on %s", serveAddr)
	fmt.Printf("listening on %s\n", serveAddr)
	return http.ListenAndServe(serveAddr, withRequestLog(mux))
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.Get(logging.CategoryBoot).Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
