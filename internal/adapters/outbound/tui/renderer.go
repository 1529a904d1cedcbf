package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/camelcase"

	"github.com/lazymigrate/lazymigrate/internal/domain"
)

// ── warm palette ──
var (
	accent  = lipgloss.Color("#D97706") // amber
	fg      = lipgloss.Color("#E8E6E3") // warm light gray
	dim     = lipgloss.Color("#6B7280") // muted gray
	faint   = lipgloss.Color("#3F3F46") // very dim
	success = lipgloss.Color("#22C55E") // green
	danger  = lipgloss.Color("#EF4444") // red
	warning = lipgloss.Color("#F59E0B") // amber-yellow
	info    = lipgloss.Color("#8B949E") // soft blue-gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	kindColors = map[domain.ChangeKind]lipgloss.Color{
		domain.KindXMLUpdate:   success,
		domain.KindJSONUpdate:  success,
		domain.KindTextReplace: lipgloss.Color("#A3E635"), // lime
		domain.KindWarning:     warning,
		domain.KindError:       danger,
	}

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	errorTagStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnTagStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	infoTagStyle  = lipgloss.NewStyle().Foreground(info)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	catNameStyle  = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderSummary formats a run summary for terminal output.
func RenderSummary(s *domain.Summary) string {
	var b strings.Builder

	// ── Header ──
	title := headerStyle.Render("lazymigrate")
	mode := "migration"
	if s.DryRun {
		mode = "dry run, nothing written"
	}
	subtitle := dimStyle.Render(mode)
	status := lipgloss.NewStyle().Bold(true).Foreground(exitColor(s.ExitCode())).Render(exitLabel(s))
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + status))
	b.WriteString("\n\n")

	if s.Fatal != "" {
		fmt.Fprintf(&b, "  %s %s\n\n", errorTagStyle.Render("fatal"), dimStyle.Render(s.Fatal))
		return b.String()
	}

	// ── Counters ──
	changed := "changed"
	if s.DryRun {
		changed = "would change"
	}
	fmt.Fprintf(&b, "  %s %s\n", catNameStyle.Render(padRight("scanned", 20)), fmt.Sprint(s.Scanned))
	fmt.Fprintf(&b, "  %s %s\n", catNameStyle.Render(padRight(changed, 20)), fmt.Sprint(s.Changed))
	for _, c := range domain.Categories {
		if n := s.PerCategory[c]; n > 0 {
			fmt.Fprintf(&b, "    %s %s\n", dimStyle.Render(padRight(Label(string(c)), 32)), dimStyle.Render(fmt.Sprint(n)))
		}
	}
	b.WriteString("\n")
	for _, k := range domain.ChangeKinds {
		if n := s.PerKind[k]; n > 0 {
			dot := lipgloss.NewStyle().Foreground(kindColor(k)).Render("●")
			fmt.Fprintf(&b, "    %s %s %d\n", dot, padRight(Label(string(k)), 30), n)
		}
	}
	if s.Git != nil {
		dirty := ""
		if s.Git.Dirty {
			dirty = warnTagStyle.Render(" dirty")
		}
		fmt.Fprintf(&b, "\n  %s %s%s\n", dimStyle.Render("git"), faintStyle.Render(shortHash(s.Git.Commit)), dirty)
	}

	b.WriteString("\n")
	b.WriteString("  " + separatorLine)
	b.WriteString("\n\n")

	// ── Changes ──
	if len(s.Records) == 0 {
		b.WriteString("  " + passStyle.Render("Nothing to migrate.") + "\n")
	}
	lastFile := "\x00"
	for _, r := range s.Records {
		if r.File != lastFile {
			name := r.File
			if name == "" {
				name = "(project)"
			}
			fmt.Fprintf(&b, "  %s\n", fileStyle.Render(shortenPath(name)))
			lastFile = r.File
		}
		renderRecord(&b, r)
	}

	for _, t := range s.Tools {
		icon := passStyle.Render("●")
		if t.ExitCode != 0 {
			icon = failStyle.Render("●")
		}
		fmt.Fprintf(&b, "\n  %s %s %s\n", icon, titleStyle.Render(Label(t.Step)), dimStyle.Render(fmt.Sprintf("exit %d", t.ExitCode)))
	}

	if len(s.Backups) > 0 {
		fmt.Fprintf(&b, "\n  %s\n", dimStyle.Render(fmt.Sprintf("%d backups written (*%s)", len(s.Backups), domain.BackupSuffix)))
	}

	b.WriteString("\n")
	return b.String()
}

func renderRecord(b *strings.Builder, r domain.ChangeRecord) {
	tag := kindTag(r.Kind)
	switch r.Kind {
	case domain.KindWarning, domain.KindError:
		fmt.Fprintf(b, "    %s %s\n", tag, dimStyle.Render(r.Message))
	case domain.KindTextReplace:
		fmt.Fprintf(b, "    %s %s  %s\n", tag, r.RuleID, faintStyle.Render(fmt.Sprintf("×%d", r.Occurrences)))
	default:
		before := r.Before
		if before == "" {
			before = "∅"
		}
		fmt.Fprintf(b, "    %s %s  %s → %s\n", tag, r.RuleID, faintStyle.Render(before), r.After)
	}
}

func kindTag(k domain.ChangeKind) string {
	switch k {
	case domain.KindError:
		return errorTagStyle.Render("error")
	case domain.KindWarning:
		return warnTagStyle.Render("warn ")
	default:
		return infoTagStyle.Render("edit ")
	}
}

func kindColor(k domain.ChangeKind) lipgloss.Color {
	if c, ok := kindColors[k]; ok {
		return c
	}
	return fg
}

func exitColor(code int) lipgloss.Color {
	switch code {
	case domain.ExitOK:
		return success
	case domain.ExitErrors:
		return warning
	default:
		return danger
	}
}

func exitLabel(s *domain.Summary) string {
	switch s.ExitCode() {
	case domain.ExitOK:
		return "completed"
	case domain.ExitErrors:
		return fmt.Sprintf("completed with %d errors", s.Errors)
	default:
		return "aborted"
	}
}

// Label turns an identifier such as "ArtifactManifest" or "update-dependencies"
// into a lower-case phrase.
func Label(id string) string {
	var words []string
	for _, part := range strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' }) {
		words = append(words, camelcase.Split(part)...)
	}
	return strings.ToLower(strings.Join(words, " "))
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	if hash == "" {
		return "·······"
	}
	return hash
}

func shortenPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) > 4 {
		return "…/" + strings.Join(parts[len(parts)-3:], "/")
	}
	return path
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// RenderHistory formats the run history for terminal output.
func RenderHistory(entries []domain.RunEntry) string {
	if len(entries) == 0 {
		return "  " + dimStyle.Render("No migration history found.") + "\n"
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + titleStyle.Render("Migration History") + "\n")
	b.WriteString("  " + faintStyle.Render(strings.Repeat("─", 50)) + "\n\n")

	for _, e := range entries {
		ts := e.Timestamp
		if len(ts) > 10 {
			ts = ts[:10]
		}
		result := lipgloss.NewStyle().
			Foreground(exitColor(e.ExitCode)).
			Render(fmt.Sprintf("%d changed", e.Changed))

		line := fmt.Sprintf("  %s  %s  %s  %s",
			dimStyle.Render(ts),
			faintStyle.Render(shortHash(e.CommitHash)),
			e.RuntimeVersion,
			result,
		)
		if e.Errors > 0 {
			line += "  " + failStyle.Render(fmt.Sprintf("%d errors", e.Errors))
		}
		if e.Warnings > 0 {
			line += "  " + warnTagStyle.Render(fmt.Sprintf("%d warnings", e.Warnings))
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	return b.String()
}
