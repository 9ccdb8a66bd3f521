package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rlm/internal/orchestrator"
)

var (
	askMaxIterations     int
	askMinCodeExecutions int
	askMinAnswerLen      int
	askParallelLoops     int
)

var askCmd = &cobra.Command{
	Use:   "ask <topic> <question...>",
	Short: "ask a question about a topic's ingested documents",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askMaxIterations, "max-iterations", 0, "iteration budget per exploration loop (0 = use config default)")
	askCmd.Flags().IntVar(&askMinCodeExecutions, "min-code-executions", 0, "minimum code blocks before an answer is accepted (0 = use config default)")
	askCmd.Flags().IntVar(&askMinAnswerLen, "min-answer-len", 0, "minimum accepted answer length (0 = use config default)")
	askCmd.Flags().IntVar(&askParallelLoops, "parallel-loops", 0, "max sub-questions to decompose into (0 = use config default)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	topic := args[0]
	question := strings.Join(args[1:], " ")

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

	p := orchestrator.Params{
		Topic:             topic,
		Question:          question,
		MaxIterations:     pickOrDefault(askMaxIterations, cfg.Gates.MaxIterations),
		MinCodeExecutions: pickOrDefault(askMinCodeExecutions, cfg.Gates.MinCodeExecutions),
		MinAnswerLen:      pickOrDefault(askMinAnswerLen, cfg.Gates.MinAnswerLen),
		ParallelLoops:     pickOrDefault(askParallelLoops, cfg.Gates.ParallelLoops),
	}

	resp, err := orchestrator.Query(context.Background(), st, llm, p)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Printf("\nSources: %s\n", strings.Join(resp.Sources, ", "))
	}
	if len(resp.CitedURLs) > 0 {
		fmt.Println("\nCitations:")
		for _, u := range resp.CitedURLs {
			fmt.Printf("  - %s\n", u)
		}
	}
	return nil
}

func pickOrDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
