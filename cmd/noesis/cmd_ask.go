package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noesis/internal/enrich"
	"noesis/internal/explorer"
	"noesis/internal/tree"
)

var (
	askDepth      int
	askParallel   bool
	askOut        string
	askSkipVisual bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question or concept]",
	Short: "Analyze, explore, and enrich in one pass",
	Long: `Runs the full pipeline: analyzes the question to find its core concept,
builds the prerequisite tree, enriches every concept, and composes the
final narrative prompt.

Example:
  noesis ask "why does e^(i*pi) equal -1?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVar(&askDepth, "depth", 0, "Maximum recursion depth (default from config)")
	askCmd.Flags().BoolVar(&askParallel, "parallel", false, "Explore sibling prerequisites concurrently")
	askCmd.Flags().StringVar(&askOut, "out", "", "Output basename (default derived from the concept)")
	askCmd.Flags().BoolVar(&askSkipVisual, "skip-visual", false, "Skip the visual design stage")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := newOracleClient()
	if err != nil {
		return err
	}
	question := strings.Join(args, " ")

	analysis, err := explorer.NewAnalyzer(client).Analyze(ctx, question)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	fmt.Printf("Core concept: %s (%s, %s)\n", analysis.CoreConcept, analysis.Domain, analysis.Level)

	opts := explorer.Options{
		MaxDepth:    cfg.Explorer.MaxDepth,
		Parallel:    cfg.Explorer.Parallel || askParallel,
		MaxInFlight: cfg.Explorer.MaxInFlight,
	}
	if askDepth > 0 {
		opts.MaxDepth = askDepth
	}
	exp := explorer.New(client, opts)

	logger.Info("exploring concept",
		zap.String("concept", analysis.CoreConcept),
		zap.String("session", exp.SessionID()))

	root, err := exp.Explore(ctx, analysis.CoreConcept)
	if err != nil {
		return fmt.Errorf("exploration failed: %w", err)
	}
	fmt.Printf("Tree: %d concepts, max depth %d\n", root.Count(), root.MaxDepth())

	if snapshots := openSnapshotStore(); snapshots != nil {
		if err := snapshots.Save(exp.SessionID(), exp.Cache().Snapshot()); err != nil {
			logger.Warn("snapshot save failed", zap.Error(err))
		}
		snapshots.Close()
	}

	pipeline := enrich.NewPipeline(client)
	pipeline.SkipVisual = cfg.Pipeline.SkipVisual || askSkipVisual
	result, err := pipeline.Run(ctx, root)
	if err != nil {
		return err
	}

	base := askOut
	if base == "" {
		base = strings.ReplaceAll(tree.NormalizeConcept(analysis.CoreConcept), " ", "_")
	}
	treePath := base + ".enriched.json"
	narrativePath := base + ".narrative.txt"

	if err := tree.Save(root, treePath); err != nil {
		return err
	}
	if err := os.WriteFile(narrativePath, []byte(result.Narrative.Prompt), 0o644); err != nil {
		return fmt.Errorf("write narrative: %w", err)
	}

	usage := exp.Usage()
	usage.Add(result.Usage)
	fmt.Printf("Enriched tree: %s\n", treePath)
	fmt.Printf("Narrative:     %s\n", narrativePath)
	fmt.Printf("%d scenes, %ds total, %d tokens, elapsed %s\n",
		result.Narrative.SceneCount, result.Narrative.TotalDuration,
		usage.TotalTokens, result.Elapsed.Round(time.Second))
	return nil
}
