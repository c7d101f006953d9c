package enrich

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"noesis/internal/logging"
	"noesis/internal/oracle"
	"noesis/internal/tree"
)

const (
	visualTemperature = 0.6
	visualMaxTokens   = 2500

	// Scene durations outside this window get pulled back to the default.
	minSceneDuration     = 5
	maxSceneDuration     = 30
	defaultSceneDuration = 15
)

var visualSchema = oracle.Schema{
	Name:        "record_visual_plan",
	Description: "Record the visual plan for one animated scene.",
	Properties: []oracle.Property{
		{Name: "elements", Type: "array", Items: "string", Description: "visual objects to create", Required: true},
		{Name: "colors", Type: "object", Description: "object name to color name"},
		{Name: "animations", Type: "array", Items: "string", Description: "animation steps in order"},
		{Name: "transitions", Type: "array", Items: "string", Description: "how to transition from the previous concept"},
		{Name: "camera_movement", Type: "string", Description: "camera movement, empty for static scenes"},
		{Name: "duration", Type: "integer", Description: "estimated duration in seconds (5-30)"},
		{Name: "layout", Type: "string", Description: "spatial arrangement of the scene"},
	},
}

type visualPayload struct {
	Elements       []string          `json:"elements"`
	Colors         map[string]string `json:"colors"`
	Animations     []string          `json:"animations"`
	Transitions    []string          `json:"transitions"`
	CameraMovement string            `json:"camera_movement"`
	Duration       int               `json:"duration"`
	Layout         string            `json:"layout"`
}

// VisualDesigner plans the animated scene for every node. Traversal is
// strictly parent-before-child: each child's prompt carries its parent's
// finished plan so colors and elements stay continuous down the tree, and
// the palette accumulated over the whole run so sibling branches agree on
// object colors.
type VisualDesigner struct {
	invoker oracle.Invoker

	usage   oracle.Usage
	failed  int
	palette map[string]string
}

// NewVisualDesigner creates a VisualDesigner over the given oracle client.
func NewVisualDesigner(client oracle.Client) *VisualDesigner {
	return &VisualDesigner{invoker: oracle.NewInvoker(client)}
}

// DesignTree plans scenes for the whole tree. Authentication failures abort;
// any other failure leaves the node without a plan, and its children fall
// back to grandparent context.
func (v *VisualDesigner) DesignTree(ctx context.Context, root *tree.Node) error {
	v.usage, v.failed = oracle.Usage{}, 0
	v.palette = make(map[string]string)
	if err := v.design(ctx, root, nil, ""); err != nil {
		return err
	}
	logging.Enrich("visual: designed %d nodes (%d skipped)", root.Count()-v.failed, v.failed)
	return nil
}

// Failed reports how many nodes were left without a plan in the last run.
func (v *VisualDesigner) Failed() int {
	return v.failed
}

// Usage returns accumulated oracle token usage for the last run.
func (v *VisualDesigner) Usage() oracle.Usage {
	return v.usage
}

func (v *VisualDesigner) design(ctx context.Context, node *tree.Node, parentPlan *tree.VisualPlan, parentConcept string) error {
	logging.EnrichDebug("%svisual: %s (depth %d)", strings.Repeat("  ", node.Depth), node.Concept, node.Depth)

	plan, err := v.designNode(ctx, node, parentPlan, parentConcept)
	if err != nil {
		if errors.Is(err, oracle.ErrAuth) {
			return err
		}
		logging.EnrichWarn("visual: skipping %q: %v", node.Concept, err)
		v.failed++
		// Children inherit whatever context exists above the gap.
		plan = parentPlan
	} else {
		parentConcept = node.Concept
	}

	for _, p := range node.Prerequisites {
		if err := v.design(ctx, p, plan, parentConcept); err != nil {
			return err
		}
	}
	return nil
}

// designNode asks for one scene plan and merges it into the node, preserving
// the fields the math stage wrote.
func (v *VisualDesigner) designNode(ctx context.Context, node *tree.Node, parentPlan *tree.VisualPlan, parentConcept string) (*tree.VisualPlan, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Concept: %s\n", node.Concept)
	if len(node.Equations) > 0 {
		fmt.Fprintf(&b, "Equations to visualize: %s\n", strings.Join(node.Equations, " ; "))
	} else {
		b.WriteString("Equations to visualize: none yet\n")
	}
	if len(node.Prerequisites) > 0 {
		names := make([]string, len(node.Prerequisites))
		for i, p := range node.Prerequisites {
			names[i] = p.Concept
		}
		fmt.Fprintf(&b, "Prerequisite concepts: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "Depth: %d (0=target concept, higher=more foundational)\n", node.Depth)
	fmt.Fprintf(&b, "Is foundation: %v\n", node.Foundation)
	if parentPlan != nil {
		fmt.Fprintf(&b, "\nPrevious concept: %s\n", parentConcept)
		if len(parentPlan.Elements) > 0 {
			fmt.Fprintf(&b, "Previous elements shown: %s\n", strings.Join(parentPlan.Elements, ", "))
		}
		if len(parentPlan.Colors) > 0 {
			fmt.Fprintf(&b, "Previous colors used: %s\n", colorPairs(parentPlan.Colors))
		}
	}
	if len(v.palette) > 0 {
		fmt.Fprintf(&b, "Color palette so far: %s\n", colorPairs(v.palette))
	}
	b.WriteString("\nDesign an animation scene for this concept.")

	var payload visualPayload
	usage, err := v.invoker.Invoke(ctx, oracle.Request{
		System:      visualSystemPrompt,
		User:        b.String(),
		Temperature: visualTemperature,
		MaxTokens:   visualMaxTokens,
	}, visualSchema, &payload)
	v.usage.Add(usage)
	if err != nil {
		return nil, err
	}

	if node.Visual == nil {
		node.Visual = &tree.VisualPlan{}
	}
	node.Visual.Elements = payload.Elements
	node.Visual.Colors = payload.Colors
	node.Visual.Animations = payload.Animations
	node.Visual.Transitions = payload.Transitions
	node.Visual.CameraMovement = payload.CameraMovement
	node.Visual.Layout = payload.Layout
	node.Visual.DurationSec = clampDuration(payload.Duration)
	for object, color := range payload.Colors {
		v.palette[object] = color
	}
	return node.Visual, nil
}

// colorPairs renders a color map as "object=color" pairs in a stable order.
func colorPairs(colors map[string]string) string {
	names := make([]string, 0, len(colors))
	for name := range colors {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = name + "=" + colors[name]
	}
	return strings.Join(pairs, ", ")
}

func clampDuration(d int) int {
	if d < minSceneDuration || d > maxSceneDuration {
		return defaultSceneDuration
	}
	return d
}
