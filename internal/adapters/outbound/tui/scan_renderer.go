package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	hintStyle          = lipgloss.NewStyle().Foreground(dim).Italic(true)
)

// RenderScan lists scanned files grouped by category. Ignored files are
// only counted unless verbose is set.
func RenderScan(files []domain.ScannedFile, verbose bool) string {
	byCategory := make(map[domain.Category][]string)
	for _, f := range files {
		byCategory[f.Category] = append(byCategory[f.Category], f.RelPath)
	}

	var b strings.Builder
	for _, c := range domain.Categories {
		items := byCategory[c]
		if len(items) == 0 {
			continue
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %s %s\n",
			sectionHeaderStyle.Render(Label(string(c))),
			dimStyle.Render(fmt.Sprintf("(%d)", len(items))),
		)
		if c == domain.CategoryIgnored && !verbose {
			continue
		}
		for _, rel := range items {
			fmt.Fprintf(&b, "    %s %s\n", faintStyle.Render("●"), rel)
		}
	}

	if len(files) == 0 {
		b.WriteString("\n  " + dimStyle.Render("No files found.") + "\n")
	}
	b.WriteString("\n")
	b.WriteString("  " + hintStyle.Render("Run lazymigrate migrate --dry-run to preview the changes."))
	b.WriteString("\n")
	return b.String()
}

// RenderRuleSet describes a validated ruleset.
func RenderRuleSet(path string, rs domain.RuleSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s %s\n\n", passStyle.Render("✓"), titleStyle.Render(path))
	fmt.Fprintf(&b, "    %s %s\n", dimStyle.Render(padRight("runtime", 20)), rs.RuntimeVersion)
	if rs.HasMunit() {
		fmt.Fprintf(&b, "    %s %s\n", dimStyle.Render(padRight("munit", 20)), rs.MunitVersion)
	}
	for _, p := range rs.PluginRules {
		fmt.Fprintf(&b, "    %s %s → %s\n", dimStyle.Render(padRight("plugin", 20)), p.Key(), p.TargetVersion)
	}
	for _, k := range rs.ArtifactKeys() {
		fmt.Fprintf(&b, "    %s %s\n", dimStyle.Render(padRight("manifest", 20)), k)
	}
	for i, r := range rs.TextReplacements {
		kind := "literal"
		if r.IsRegex {
			kind = "regex"
		}
		line := fmt.Sprintf("    %s %s %s", dimStyle.Render(padRight(r.ID(i), 20)), kind, faintStyle.Render(r.Pattern))
		if r.FileGlob != "" {
			line += "  " + dimStyle.Render(r.FileGlob)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
