package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noesis/internal/explorer"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [question]",
	Short: "Extract the core concept from a learning request",
	Long: `Analyzes a free-form question and reports the core concept, domain,
complexity level, and learning goal as JSON.

Example:
  noesis analyze "How does quantum field theory work?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := newOracleClient()
	if err != nil {
		return err
	}

	input := strings.Join(args, " ")
	logger.Info("analyzing request", zap.String("input", input))

	analysis, err := explorer.NewAnalyzer(client).Analyze(ctx, input)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// commandContext returns a context cancelled by the timeout flag or an
// interrupt signal.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		timeoutCancel()
		stop()
	}
}
