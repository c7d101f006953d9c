package tree

import (
	"encoding/json"
	"fmt"
	"os"
)

// Marshal renders the tree as indented JSON. The format mirrors the node
// fields exactly, so Unmarshal reconstructs a structurally identical tree.
func Marshal(root *Node) ([]byte, error) {
	return json.MarshalIndent(root, "", "  ")
}

// Unmarshal parses a tree document and validates its structural invariants.
func Unmarshal(data []byte) (*Node, error) {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse tree: %w", err)
	}
	if root.Concept == "" {
		return nil, fmt.Errorf("tree has no root concept")
	}
	normalize(&root)
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tree: %w", err)
	}
	return &root, nil
}

// normalize fills nil prerequisite slices so that a round-tripped tree
// compares equal to the one that was saved.
func normalize(n *Node) {
	if n.Prerequisites == nil {
		n.Prerequisites = []*Node{}
	}
	for _, p := range n.Prerequisites {
		normalize(p)
	}
}

// Save writes the tree to path as JSON.
func Save(root *Node, path string) error {
	data, err := Marshal(root)
	if err != nil {
		return fmt.Errorf("failed to marshal tree: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tree file: %w", err)
	}
	return nil
}

// Load reads and validates a tree from path.
func Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}
	return Unmarshal(data)
}
