package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/vanderheijden86/pricescope/pkg/model"
	"github.com/vanderheijden86/pricescope/pkg/scope"
	"github.com/vanderheijden86/pricescope/pkg/tree"
)

// GenerateSummary renders the session's current scope as markdown: the
// chosen scenario, panel and rule, then each dimension's selection with its
// leaf counts and the hierarchy path down to each selected node.
func GenerateSummary(s *scope.Session, title string, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", now.Format(time.RFC1123)))

	sb.WriteString("## Context\n\n")
	if sc := s.Scenario(); sc != nil {
		sb.WriteString(fmt.Sprintf("- **Scenario**: %s (%d)\n", sc.Name, sc.ID))
	} else {
		sb.WriteString("- **Scenario**: none\n")
	}
	if p := s.Panel(); p != nil {
		sb.WriteString(fmt.Sprintf("- **Panel**: %s (%d), scope locked\n", p.Name, p.ID))
	}
	if r, ok := s.Rule(); ok {
		sb.WriteString(fmt.Sprintf("- **Rule**: #%d %s (rank %d)\n", r.ID, r.RuleType, r.Rank))
	}
	sb.WriteString(fmt.Sprintf("- **Session**: `%s`\n\n", s.ID))

	for _, d := range []model.Dimension{model.DimensionProduct, model.DimensionLocation} {
		writeDimension(&sb, s.Dimension(d))
	}

	return sb.String()
}

func writeDimension(sb *strings.Builder, d *scope.DimensionScope) {
	label := d.Dimension.Plural()
	sb.WriteString(fmt.Sprintf("## %s%s\n\n", strings.ToUpper(label[:1]), label[1:]))

	ids := d.Selection().IDs().Sorted()
	if len(ids) == 0 {
		sb.WriteString("_Nothing selected._\n\n")
		return
	}

	forest := d.Forest()
	unit := d.Dimension.UnitLabel()

	sb.WriteString("| Selected | Kind | Level | " + unit + "s |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, id := range ids {
		name, kind, level := id, "node", ""
		if gid, ok := model.ParseGroupKey(id); ok {
			kind = "group"
			if g, ok := model.FindGroup(d.Groups(), gid); ok {
				name = g.Name
				level = string(g.Type)
			}
		} else if n, ok := tree.FindNode(forest, id); ok {
			name = n.Name
			level = n.Level
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d |\n",
			escapeCell(name), kind, escapeCell(level), tree.LeafCountFor(id, forest, d.Groups())))
	}
	sb.WriteString(fmt.Sprintf("\n**Total**: %d %ss\n\n", d.Count(), unit))

	// Selection paths (Mermaid)
	var edges []string
	seen := make(map[string]bool)
	for _, id := range ids {
		path, ok := tree.FindPath(forest, id)
		if !ok {
			continue
		}
		chain := append(append([]string{}, path...), id)
		for i := 0; i+1 < len(chain); i++ {
			e := mermaidID(chain[i]) + " --> " + mermaidID(chain[i+1])
			if !seen[e] {
				seen[e] = true
				edges = append(edges, e)
			}
		}
	}
	if len(edges) == 0 {
		return
	}
	sb.WriteString("```mermaid\ngraph TD\n")
	for _, e := range edges {
		sb.WriteString("    " + e + "\n")
	}
	for _, id := range ids {
		if !model.IsGroupKey(id) {
			sb.WriteString(fmt.Sprintf("    style %s stroke-width:3px\n", mermaidID(id)))
		}
	}
	sb.WriteString("```\n\n")
}

// mermaidID makes a hierarchy id safe as a Mermaid node id.
func mermaidID(id string) string {
	var b strings.Builder
	b.WriteString("n_")
	for _, r := range id {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// SaveSummaryToFile writes the generated summary to a file
func SaveSummaryToFile(s *scope.Session, filename string) error {
	content := GenerateSummary(s, "Pricing Scope", time.Now())
	return os.WriteFile(filename, []byte(content), 0644)
}
