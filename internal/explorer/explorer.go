// Package explorer builds knowledge trees by recursively asking what must be
// understood before a concept, until every path bottoms out at foundation
// concepts a high school graduate already knows.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"noesis/internal/logging"
	"noesis/internal/oracle"
	"noesis/internal/tree"
)

const (
	// DefaultMaxDepth bounds recursion; depth 4 keeps trees explainable in
	// one sitting.
	DefaultMaxDepth = 4

	// maxPrerequisites caps fan-out per concept regardless of what the
	// oracle returns.
	maxPrerequisites = 5

	// probeMaxTokens is all a yes/no answer needs.
	probeMaxTokens = 16

	discoveryTemperature = 0.3
	discoveryMaxTokens   = 500
)

var prerequisitesSchema = oracle.Schema{
	Name:        "record_prerequisites",
	Description: "Record the essential prerequisite concepts for the given concept.",
	Properties: []oracle.Property{
		{
			Name:        "prerequisites",
			Type:        "array",
			Items:       "string",
			Description: "3-5 essential prerequisite concepts, ordered most to least important",
			Required:    true,
		},
	},
}

type prerequisitesPayload struct {
	Prerequisites []string `json:"prerequisites"`
}

// Options configures an Explorer.
type Options struct {
	// MaxDepth bounds the recursion. Zero means DefaultMaxDepth.
	MaxDepth int
	// Parallel explores sibling prerequisites concurrently.
	Parallel bool
	// MaxInFlight caps concurrent oracle calls when Parallel is set.
	// Zero means 4.
	MaxInFlight int
}

// Explorer recursively discovers prerequisites for a concept. Each Explorer
// owns a session-scoped cache; build a fresh one per exploration session.
type Explorer struct {
	client      oracle.Client
	invoker     oracle.Invoker
	maxDepth    int
	parallel    bool
	maxInFlight int
	cache       *Cache
	sessionID   string

	usageMu sync.Mutex
	usage   oracle.Usage
}

// New creates an Explorer over the given oracle client.
func New(client oracle.Client, opts Options) *Explorer {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	maxInFlight := opts.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = 4
	}
	return &Explorer{
		client:      client,
		invoker:     oracle.NewInvoker(client),
		maxDepth:    maxDepth,
		parallel:    opts.Parallel,
		maxInFlight: maxInFlight,
		cache:       NewCache(),
		sessionID:   uuid.NewString(),
	}
}

// SessionID identifies this exploration session, for snapshot persistence.
func (e *Explorer) SessionID() string {
	return e.sessionID
}

// Cache exposes the session cache, for snapshot persistence.
func (e *Explorer) Cache() *Cache {
	return e.cache
}

// Usage returns accumulated oracle token usage for the session.
func (e *Explorer) Usage() oracle.Usage {
	e.usageMu.Lock()
	defer e.usageMu.Unlock()
	return e.usage
}

func (e *Explorer) addUsage(u oracle.Usage) {
	e.usageMu.Lock()
	e.usage.Add(u)
	e.usageMu.Unlock()
}

// Explore builds the knowledge tree rooted at concept. Authentication
// failures abort the whole exploration; any other oracle failure degrades
// the affected node to a foundation leaf so a usable partial tree always
// comes back.
func (e *Explorer) Explore(ctx context.Context, concept string) (*tree.Node, error) {
	logging.Explorer("session %s: exploring %q (max_depth=%d parallel=%v)",
		e.sessionID, concept, e.maxDepth, e.parallel)
	ancestors := map[string]bool{tree.NormalizeConcept(concept): true}
	return e.explore(ctx, concept, 0, ancestors)
}

func (e *Explorer) explore(ctx context.Context, concept string, depth int, ancestors map[string]bool) (*tree.Node, error) {
	logging.ExplorerDebug("%sexploring: %s (depth %d)", strings.Repeat("  ", depth), concept, depth)

	// A cancelled exploration still yields a tree; unexplored branches
	// close out as foundation leaves.
	if ctx.Err() != nil {
		logging.ExplorerWarn("exploration cancelled at %q (depth %d)", concept, depth)
		return tree.NewNode(concept, depth, true), nil
	}

	if depth >= e.maxDepth {
		logging.ExplorerDebug("%s-> depth limit, foundation", strings.Repeat("  ", depth))
		return tree.NewNode(concept, depth, true), nil
	}

	foundation, err := e.isFoundation(ctx, concept)
	if err != nil {
		if errors.Is(err, oracle.ErrAuth) {
			return nil, err
		}
		// Oracle exhausted on the probe: close the branch rather than
		// lose the tree.
		logging.ExplorerWarn("foundation probe failed for %q, marking foundation: %v", concept, err)
		return tree.NewNode(concept, depth, true), nil
	}
	if foundation {
		logging.ExplorerDebug("%s-> foundation", strings.Repeat("  ", depth))
		return tree.NewNode(concept, depth, true), nil
	}

	prerequisites, err := e.lookupPrerequisites(ctx, concept)
	if err != nil {
		if errors.Is(err, oracle.ErrAuth) {
			return nil, err
		}
		logging.ExplorerWarn("discovery failed for %q, marking foundation: %v", concept, err)
		return tree.NewNode(concept, depth, true), nil
	}

	// Prune prerequisites that already appear on the path to the root; a
	// cycle in claimed prerequisites is an oracle artifact, not an error.
	var kept []string
	seen := make(map[string]bool, len(prerequisites))
	for _, p := range prerequisites {
		key := tree.NormalizeConcept(p)
		if key == "" || seen[key] {
			continue
		}
		if ancestors[key] {
			logging.ExplorerWarn("pruned cyclic prerequisite %q under %q", p, concept)
			continue
		}
		seen[key] = true
		kept = append(kept, p)
	}

	// Nothing left to explain means the concept stands on its own.
	if len(kept) == 0 {
		return tree.NewNode(concept, depth, true), nil
	}

	node := tree.NewNode(concept, depth, false)
	node.Prerequisites = make([]*tree.Node, len(kept))

	if e.parallel {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.maxInFlight)
		for i, prereq := range kept {
			g.Go(func() error {
				child, err := e.explore(gctx, prereq, depth+1, childAncestors(ancestors, prereq))
				if err != nil {
					return err
				}
				node.Prerequisites[i] = child
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, prereq := range kept {
			child, err := e.explore(ctx, prereq, depth+1, childAncestors(ancestors, prereq))
			if err != nil {
				return nil, err
			}
			node.Prerequisites[i] = child
		}
	}
	return node, nil
}

// isFoundation asks whether a high school graduate would already understand
// the concept. The probe runs at zero temperature with a tiny token budget;
// anything but a reply starting with "yes" means not foundational.
func (e *Explorer) isFoundation(ctx context.Context, concept string) (bool, error) {
	reply, err := e.client.Complete(ctx, oracle.Request{
		System:      foundationSystemPrompt,
		User:        fmt.Sprintf("Is %q a foundational concept?\n\nAnswer with ONLY \"yes\" or \"no\".", concept),
		Temperature: 0,
		MaxTokens:   probeMaxTokens,
	})
	if err != nil {
		return false, err
	}
	e.addUsage(reply.Usage)
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(reply.Text)), "yes"), nil
}

// lookupPrerequisites consults the session cache before asking the oracle.
func (e *Explorer) lookupPrerequisites(ctx context.Context, concept string) ([]string, error) {
	if prereqs, ok := e.cache.Lookup(concept); ok {
		logging.ExplorerDebug("cache hit for %q", concept)
		return prereqs, nil
	}
	prereqs, err := e.discoverPrerequisites(ctx, concept)
	if err != nil {
		return nil, err
	}
	e.cache.Store(concept, prereqs)
	return prereqs, nil
}

func (e *Explorer) discoverPrerequisites(ctx context.Context, concept string) ([]string, error) {
	var payload prerequisitesPayload
	usage, err := e.invoker.Invoke(ctx, oracle.Request{
		System:      discoverySystemPrompt,
		User:        fmt.Sprintf("To understand %q, what are the 3-5 ESSENTIAL prerequisite concepts?", concept),
		Temperature: discoveryTemperature,
		MaxTokens:   discoveryMaxTokens,
	}, prerequisitesSchema, &payload)
	e.addUsage(usage)
	if err != nil {
		if errors.Is(err, oracle.ErrParse) {
			// An unparseable discovery degrades to no prerequisites; the
			// caller will close the branch as foundation.
			logging.ExplorerWarn("unparseable prerequisites for %q, treating as none", concept)
			return nil, nil
		}
		return nil, err
	}

	prereqs := payload.Prerequisites
	if len(prereqs) > maxPrerequisites {
		prereqs = prereqs[:maxPrerequisites]
	}
	out := make([]string, 0, len(prereqs))
	for _, p := range prereqs {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

func childAncestors(ancestors map[string]bool, concept string) map[string]bool {
	next := make(map[string]bool, len(ancestors)+1)
	for k := range ancestors {
		next[k] = true
	}
	next[tree.NormalizeConcept(concept)] = true
	return next
}
