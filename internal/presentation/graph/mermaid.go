package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/chaptree/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	// Changed lists chapters touched by the latest revision.
	Changed []string
	// Selected is the chapter the user is working on.
	Selected string
}

// GenerateMermaid produces a Mermaid flowchart syntax string from a forest.
// Roots hang from a single outline node so sibling order reads left to right.
// It applies semantic styling:
// - Outline: ((Circle))
// - Chapter with masters: [[Subroutine]]
// - Default: [Rectangle]
// Unnamed chapters get the "unnamed" class. Overlay styles are applied if provided.
func GenerateMermaid(forest domain.Forest, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    outline((\"outline\"))\n")

	var unnamed []string
	forest.Walk(func(n *domain.Node, p domain.Path) bool {
		safeID := sanitizeMermaidID(n.ID())

		opener, closer := "[", "]"
		if len(n.MasterRefs()) > 0 {
			opener, closer = "[[", "]]"
		}
		label := fmt.Sprintf("%s %s", p, escapeLabel(n.Label()))
		if len(n.MasterRefs()) > 0 {
			label += " <br/> " + escapeLabel(n.MasterLabel())
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)
		if !n.Named() {
			unnamed = append(unnamed, safeID)
		}

		parent := "outline"
		if len(p) > 1 {
			parentNode, _ := forest.NodeAt(p.Parent())
			parent = sanitizeMermaidID(parentNode.ID())
		}
		fmt.Fprintf(&sb, "    %s --> %s\n", parent, safeID)
		return true
	})

	if len(unnamed) > 0 {
		sb.WriteString("\n    classDef unnamed stroke-dasharray: 5 5;\n")
		for _, id := range unnamed {
			fmt.Fprintf(&sb, "    class %s unnamed;\n", id)
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef changed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.Changed {
			safeID := sanitizeMermaidID(id)
			if !seen[safeID] && safeID != "" && forest.Contains(id) {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s changed;\n", safeID)
			}
		}

		if overlay.Selected != "" && forest.Contains(overlay.Selected) {
			fmt.Fprintf(&sb, "    class %s selected;\n", sanitizeMermaidID(overlay.Selected))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// sanitizeMermaidID prefixes ids so that a uuid starting with a digit or a
// reserved word like "end" stays a valid Mermaid identifier.
func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return "n_" + s
}
