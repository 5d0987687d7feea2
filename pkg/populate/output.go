package populate

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/exp/maps"

	"github.com/tendant/wso2is-populate/pkg/importer"
)

// PrintResult writes a human readable report of a run to w.
func PrintResult(w io.Writer, result *Result) {
	if result == nil {
		return
	}

	printSectionHeader(w, "WSO2 IS POPULATE")
	printApplicationSection(w, result)
	printOutcomes(w, "🔑 Roles:", result.Roles)
	printOutcomes(w, "👤 Users:", result.Users)
	printUnresolved(w, result.Unresolved)
	printTokenSection(w, result.Token)
	printSectionFooter(w)
}

func printSectionHeader(w io.Writer, title string) {
	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\n", border)
	fmt.Fprintf(w, "🚀 %s\n", title)
	fmt.Fprintf(w, "%s\n", border)
}

func printSectionFooter(w io.Writer) {
	border := strings.Repeat("=", 80)
	fmt.Fprintf(w, "%s\n\n", border)
}

func printApplicationSection(w io.Writer, result *Result) {
	app := result.Application
	if app == nil {
		return
	}
	fmt.Fprintln(w, "\n📋 Application:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "  Name:        %s\n", app.Application)
	fmt.Fprintf(w, "  ID:          %s\n", valueOr(app.ID, "(unknown)"))
	fmt.Fprintf(w, "  Phase:       %s\n", app.Phase)
	for _, step := range app.Steps {
		status := "✓"
		switch {
		case step.Skipped:
			status = "- skipped"
		case step.Err != nil:
			status = "✗ " + step.Err.Error()
		}
		fmt.Fprintf(w, "    %-10s %s (%s)\n", step.Name, status, step.Duration.Round(time.Millisecond))
	}
}

func printOutcomes(w io.Writer, title string, outcomes []importer.Outcome) {
	if len(outcomes) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for i, o := range outcomes {
		status := "✨ Created"
		switch o.Status {
		case importer.StatusExisted:
			status = "✓ Already existed"
		case importer.StatusFailed:
			status = "✗ Failed: " + o.Err.Error()
		}
		fmt.Fprintf(w, "  %d. %s\n", i+1, o.Name)
		fmt.Fprintf(w, "     Status: %s\n", status)
	}
}

func printUnresolved(w io.Writer, unresolved map[string][]string) {
	if len(unresolved) == 0 {
		return
	}
	fmt.Fprintln(w, "\n⚠️  Role members missing from the directory:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	roles := maps.Keys(unresolved)
	sort.Strings(roles)
	for _, role := range roles {
		fmt.Fprintf(w, "  • %s: %s\n", role, strings.Join(unresolved[role], ", "))
	}
}

func printTokenSection(w io.Writer, tok *TokenResult) {
	if tok == nil {
		return
	}
	fmt.Fprintln(w, "\n🎫 Token check:")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "  Username:  %s\n", tok.Username)
	fmt.Fprintf(w, "  Kind:      %s\n", tok.Kind)
	if tok.Subject != "" {
		fmt.Fprintf(w, "  Subject:   %s\n", tok.Subject)
	}
	fmt.Fprintf(w, "  Scope:     %s\n", valueOr(tok.Scope, "(none)"))
	fmt.Fprintf(w, "  Expires:   %s\n", tok.ExpiresAt.Format(time.RFC3339))
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// LogSummary logs a concise summary of a run. Passwords and secrets are never
// part of a Result.
func LogSummary(logger *slog.Logger, result *Result) {
	if result == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []any{
		"roles_total", len(result.Roles),
		"roles_created", countStatus(result.Roles, importer.StatusCreated),
		"roles_failed", countStatus(result.Roles, importer.StatusFailed),
		"users_total", len(result.Users),
		"users_created", countStatus(result.Users, importer.StatusCreated),
		"users_failed", countStatus(result.Users, importer.StatusFailed),
		"unresolved_roles", len(result.Unresolved),
	}
	if result.Application != nil {
		attrs = append(attrs,
			"application", result.Application.Application,
			"application_id", result.Application.ID,
			"phase", result.Application.Phase)
	}
	if result.Token != nil {
		attrs = append(attrs, "token_kind", result.Token.Kind)
	}
	logger.Info("populate summary", attrs...)
}

func countStatus(outcomes []importer.Outcome, status importer.Status) int {
	count := 0
	for _, o := range outcomes {
		if o.Status == status {
			count++
		}
	}
	return count
}
