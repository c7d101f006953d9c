package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"noesis/internal/explorer"
	"noesis/internal/store"
	"noesis/internal/tree"
)

var (
	exploreDepth    int
	exploreParallel bool
	exploreOut      string
	exploreResume   bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore [concept]",
	Short: "Build the knowledge tree for a concept",
	Long: `Recursively discovers what must be understood before a concept, down to
foundation concepts a high school graduate already knows. The tree is printed
and saved as JSON for later enrichment.

Example:
  noesis explore "special relativity" --depth 3 --out tree.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().IntVar(&exploreDepth, "depth", 0, "Maximum recursion depth (default from config)")
	exploreCmd.Flags().BoolVar(&exploreParallel, "parallel", false, "Explore sibling prerequisites concurrently")
	exploreCmd.Flags().StringVar(&exploreOut, "out", "", "Output file (default knowledge_tree_<concept>.json)")
	exploreCmd.Flags().BoolVar(&exploreResume, "resume", false, "Warm the cache from the latest snapshot")
}

func runExplore(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	client, err := newOracleClient()
	if err != nil {
		return err
	}

	concept := strings.Join(args, " ")
	opts := explorer.Options{
		MaxDepth:    cfg.Explorer.MaxDepth,
		Parallel:    cfg.Explorer.Parallel || exploreParallel,
		MaxInFlight: cfg.Explorer.MaxInFlight,
	}
	if exploreDepth > 0 {
		opts.MaxDepth = exploreDepth
	}
	exp := explorer.New(client, opts)

	snapshots := openSnapshotStore()
	if snapshots != nil {
		defer snapshots.Close()
	}
	if exploreResume && snapshots != nil {
		warmCache(exp, snapshots)
	}

	logger.Info("exploring concept",
		zap.String("concept", concept),
		zap.String("session", exp.SessionID()),
		zap.Int("max_depth", opts.MaxDepth))

	root, err := exp.Explore(ctx, concept)
	if err != nil {
		return fmt.Errorf("exploration failed: %w", err)
	}

	fmt.Print(root.Sprint())
	fmt.Printf("\n%d concepts, max depth %d, %d tokens\n",
		root.Count(), root.MaxDepth(), exp.Usage().TotalTokens)

	out := exploreOut
	if out == "" {
		out = fmt.Sprintf("knowledge_tree_%s.json", strings.ReplaceAll(tree.NormalizeConcept(concept), " ", "_"))
	}
	if err := tree.Save(root, out); err != nil {
		return err
	}
	fmt.Printf("Saved tree to %s\n", out)

	if snapshots != nil {
		if err := snapshots.Save(exp.SessionID(), exp.Cache().Snapshot()); err != nil {
			logger.Warn("snapshot save failed", zap.Error(err))
		}
	}
	return nil
}

// openSnapshotStore opens the configured store, or returns nil when the
// store is disabled or unavailable. Snapshots are advisory.
func openSnapshotStore() *store.SnapshotStore {
	if !cfg.Store.Enabled {
		return nil
	}
	s, err := store.NewSnapshotStore(cfg.Store.DatabasePath)
	if err != nil {
		logger.Warn("snapshot store unavailable", zap.Error(err))
		return nil
	}
	return s
}

func warmCache(exp *explorer.Explorer, snapshots *store.SnapshotStore) {
	cache, err := snapshots.LoadLatest()
	if err != nil {
		logger.Warn("snapshot load failed", zap.Error(err))
		return
	}
	if len(cache) > 0 {
		exp.Cache().Restore(cache)
		logger.Info("warmed cache from snapshot", zap.Int("concepts", len(cache)))
	}
}
