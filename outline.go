package chaptree

import (
	"fmt"
	"strings"

	"github.com/aretw0/chaptree/pkg/domain"
)

// Outline renders the forest as a Markdown nested list.
// Each entry shows the path, the label and the assigned masters.
func Outline(f domain.Forest) string {
	var b strings.Builder
	f.Walk(func(n *domain.Node, p domain.Path) bool {
		indent := strings.Repeat("  ", len(p)-1)
		label := n.Label()
		if !n.Named() {
			label = "_" + label + "_"
		} else {
			label = "**" + label + "**"
		}
		fmt.Fprintf(&b, "%s- `%s` %s · %s\n", indent, p, label, n.MasterLabel())
		return true
	})
	return b.String()
}
