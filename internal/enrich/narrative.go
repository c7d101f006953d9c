package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"noesis/internal/logging"
	"noesis/internal/oracle"
	"noesis/internal/tree"
)

const (
	narrativeTemperature = 0.7
	narrativeMaxTokens   = 1500

	// Segments shorter than this are sent back once for expansion; the
	// target register is 200-300 words.
	minSegmentWords = 120
)

// Narrative is the finished script: one segment per concept in teaching
// order, assembled into a single verbose prompt.
type Narrative struct {
	TargetConcept string   `json:"target_concept"`
	Prompt        string   `json:"verbose_prompt"`
	ConceptOrder  []string `json:"concept_order"`
	TotalDuration int      `json:"total_duration"`
	SceneCount    int      `json:"scene_count"`
}

// Composer turns an enriched tree into a narrative. Concepts are visited in
// deduplicated post-order, so every prerequisite is taught before anything
// that depends on it and nothing is taught twice.
type Composer struct {
	client oracle.Client

	usage oracle.Usage
}

// NewComposer creates a Composer over the given oracle client.
func NewComposer(client oracle.Client) *Composer {
	return &Composer{client: client}
}

// Usage returns accumulated oracle token usage for the last run.
func (c *Composer) Usage() oracle.Usage {
	return c.usage
}

// Compose writes a narrative segment onto every node in teaching order and
// assembles them into the final prompt. The root carries the narrative and
// the summed duration. Authentication failures abort; a failed segment
// degrades to a one-line stub so the scene sequence stays complete.
func (c *Composer) Compose(ctx context.Context, root *tree.Node) (*Narrative, error) {
	c.usage = oracle.Usage{}

	ordered := root.ConceptOrder()
	concepts := make([]string, len(ordered))
	for i, node := range ordered {
		concepts[i] = node.Concept
	}
	logging.Compose("composing %q: %d scenes", root.Concept, len(ordered))

	totalDuration := 0
	for i, node := range ordered {
		next := ""
		if i+1 < len(concepts) {
			next = concepts[i+1]
		}
		segment, err := c.generateSegment(ctx, node, i+1, len(ordered), concepts[:i], next, node == root)
		if err != nil {
			if errors.Is(err, oracle.ErrAuth) {
				return nil, err
			}
			logging.ComposeWarn("segment for %q failed, using stub: %v", node.Concept, err)
			segment = fmt.Sprintf("Introduce %s, building on what came before.", node.Concept)
		}
		node.Narrative = segment
		totalDuration += sceneDuration(node)
	}

	narrative := &Narrative{
		TargetConcept: root.Concept,
		ConceptOrder:  concepts,
		TotalDuration: totalDuration,
		SceneCount:    len(ordered),
	}
	narrative.Prompt = assemblePrompt(root.Concept, ordered, concepts, totalDuration)

	// The root carries the finished script; its own segment has already been
	// stitched into it as the final scene.
	root.Narrative = narrative.Prompt
	root.TotalDurationSec = totalDuration
	logging.Compose("composed %q: %d scenes, %ds, %d chars",
		root.Concept, narrative.SceneCount, totalDuration, len(narrative.Prompt))
	return narrative, nil
}

func (c *Composer) generateSegment(ctx context.Context, node *tree.Node, number, total int, previous []string, next string, isFinal bool) (string, error) {
	logging.Compose("segment %d/%d: %s", number, total, node.Concept)

	prompt := segmentPrompt(node, number, total, previous, next, isFinal)
	reply, err := c.client.Complete(ctx, oracle.Request{
		System:      narrativeSystemPrompt,
		User:        prompt,
		Temperature: narrativeTemperature,
		MaxTokens:   narrativeMaxTokens,
	})
	if err != nil {
		return "", err
	}
	c.usage.Add(reply.Usage)
	segment := strings.TrimSpace(reply.Text)

	// One expansion pass for thin segments; a short retry that comes back
	// even shorter loses.
	if words(segment) < minSegmentWords {
		logging.ComposeWarn("segment for %q is thin (%d words), expanding once", node.Concept, words(segment))
		expanded, err := c.client.Complete(ctx, oracle.Request{
			System:      narrativeSystemPrompt,
			User:        prompt + "\n\nYour previous attempt was too short. Expand to a full 200-300 word scene description with complete visual and LaTeX detail.",
			Temperature: narrativeTemperature,
			MaxTokens:   narrativeMaxTokens,
		})
		if err == nil {
			c.usage.Add(expanded.Usage)
			if candidate := strings.TrimSpace(expanded.Text); words(candidate) > words(segment) {
				segment = candidate
			}
		}
	}
	return segment, nil
}

func segmentPrompt(node *tree.Node, number, total int, previous []string, next string, isFinal bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a 200-300 word narrative segment for an animated explanation.\n\n")
	fmt.Fprintf(&b, "Segment %d of %d\n", number, total)
	fmt.Fprintf(&b, "Concept: %s\n", node.Concept)
	if len(previous) > 0 {
		fmt.Fprintf(&b, "Previous concepts covered: %s\n", strings.Join(previous, ", "))
	} else {
		b.WriteString("Previous concepts covered: none (this is the first concept)\n")
	}
	if next != "" {
		fmt.Fprintf(&b, "Next concept: %s (end with a bridge toward it)\n", next)
	}
	if isFinal {
		b.WriteString("This is the FINAL segment - the target concept the whole animation builds toward.\n")
	}

	b.WriteString("\nMathematical content:\n")
	if len(node.Equations) > 0 {
		fmt.Fprintf(&b, "Equations: %s\n", strings.Join(node.Equations, " ; "))
	} else {
		b.WriteString("Equations: define appropriate equations\n")
	}
	if len(node.Definitions) > 0 {
		b.WriteString("Definitions:\n")
		for symbol, meaning := range node.Definitions {
			fmt.Fprintf(&b, "  %s: %s\n", symbol, meaning)
		}
	}

	if node.Visual != nil {
		b.WriteString("\nVisual specification:\n")
		if len(node.Visual.Elements) > 0 {
			fmt.Fprintf(&b, "Elements: %s\n", strings.Join(node.Visual.Elements, ", "))
		}
		if len(node.Visual.Animations) > 0 {
			fmt.Fprintf(&b, "Animations: %s\n", strings.Join(node.Visual.Animations, ", "))
		}
		if node.Visual.Layout != "" {
			fmt.Fprintf(&b, "Layout: %s\n", node.Visual.Layout)
		}
		fmt.Fprintf(&b, "Duration: %d seconds\n", sceneDuration(node))
	}

	b.WriteString("\nThe segment must connect to the previous concept, introduce this one naturally,\n")
	b.WriteString("display the key equations with exact LaTeX notation, and describe each\n")
	b.WriteString("animation step with colors, positions, and timing.")
	return b.String()
}

func words(s string) int {
	return len(strings.Fields(s))
}

func sceneDuration(node *tree.Node) int {
	if node.Visual != nil && node.Visual.DurationSec > 0 {
		return node.Visual.DurationSec
	}
	return defaultSceneDuration
}

// assemblePrompt stitches the per-node segments into the final document:
// header, numbered scenes with cumulative timestamps, footer.
func assemblePrompt(target string, ordered []*tree.Node, concepts []string, totalDuration int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Animation: %s\n\n", target)
	b.WriteString("## Overview\n")
	fmt.Fprintf(&b, "This animation builds %s from first principles through a carefully\n", target)
	b.WriteString("constructed knowledge tree. Each concept is explained with mathematical rigor\n")
	b.WriteString("and visual clarity, building from foundational ideas to advanced understanding.\n\n")
	fmt.Fprintf(&b, "**Total Concepts**: %d\n", len(ordered))
	fmt.Fprintf(&b, "**Progression**: %s\n", strings.Join(concepts, " -> "))
	fmt.Fprintf(&b, "**Estimated Duration**: %d seconds (%s)\n\n", totalDuration, clock(totalDuration))
	b.WriteString("## Animation Requirements\n")
	b.WriteString("- All LaTeX in proper math mode with double backslashes\n")
	b.WriteString("- Maintain color consistency throughout\n")
	b.WriteString("- Ensure smooth transitions between scenes\n")
	b.WriteString("- Include voiceover-friendly pacing\n\n")
	b.WriteString("## Scene Sequence\n\n")

	elapsed := 0
	for i, node := range ordered {
		duration := sceneDuration(node)
		fmt.Fprintf(&b, "### Scene %d: %s\n", i+1, node.Concept)
		fmt.Fprintf(&b, "**Timestamp**: %s - %s\n\n", clock(elapsed), clock(elapsed+duration))
		b.WriteString(node.Narrative)
		b.WriteString("\n\n---\n\n")
		elapsed += duration
	}

	b.WriteString("## Final Notes\n\n")
	fmt.Fprintf(&b, "The progression from %s to %s ensures that viewers have all necessary\n", concepts[0], target)
	b.WriteString("prerequisites before encountering advanced concepts. All visual elements,\n")
	b.WriteString("colors, and transitions have been specified to maintain consistency and\n")
	fmt.Fprintf(&b, "clarity throughout the %d-second animation.\n", totalDuration)
	return b.String()
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
