package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noesis/internal/enrich"
	"noesis/internal/tree"
)

var enrichSkipVisual bool

var enrichCmd = &cobra.Command{
	Use:   "enrich [tree.json]",
	Short: "Enrich a knowledge tree and compose its narrative",
	Long: `Runs the enrichment pipeline over a saved knowledge tree: mathematical
content, visual plans, and a narrated scene-by-scene prompt. Writes the
enriched tree next to the input plus a .narrative.txt file.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().BoolVar(&enrichSkipVisual, "skip-visual", false, "Skip the visual design stage")
}

func runEnrich(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	root, err := tree.Load(args[0])
	if err != nil {
		return fmt.Errorf("cannot load tree from %s: %w", args[0], err)
	}

	client, err := newOracleClient()
	if err != nil {
		return err
	}

	pipeline := enrich.NewPipeline(client)
	pipeline.SkipVisual = cfg.Pipeline.SkipVisual || enrichSkipVisual

	logger.Info("enriching tree",
		zap.String("concept", root.Concept),
		zap.Int("concepts", root.Count()),
		zap.Bool("skip_visual", pipeline.SkipVisual))

	result, err := pipeline.Run(ctx, root)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(args[0], ".json")
	enrichedPath := base + ".enriched.json"
	narrativePath := base + ".narrative.txt"

	if err := tree.Save(root, enrichedPath); err != nil {
		return err
	}
	if err := os.WriteFile(narrativePath, []byte(result.Narrative.Prompt), 0o644); err != nil {
		return fmt.Errorf("write narrative: %w", err)
	}

	fmt.Printf("Enriched tree: %s\n", enrichedPath)
	fmt.Printf("Narrative:     %s\n", narrativePath)
	fmt.Printf("%d scenes, %ds total, %d tokens, elapsed %s\n",
		result.Narrative.SceneCount, result.Narrative.TotalDuration,
		result.Usage.TotalTokens, result.Elapsed.Round(time.Second))
	if result.MathSkips > 0 || result.VisualSkips > 0 {
		fmt.Printf("Skipped concepts: %d math, %d visual\n", result.MathSkips, result.VisualSkips)
	}
	return nil
}
