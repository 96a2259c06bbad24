package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/xrdtools/xrdmods/installer"
	"github.com/xrdtools/xrdmods/manager"
	"github.com/xrdtools/xrdmods/registry"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	addOnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).PaddingLeft(4)
	welcomeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD700")).
			BorderStyle(lipgloss.RoundedBorder()).
			Padding(1)
)

func printWelcomeMessage(w io.Writer) {
	version, _ := getCurrentVersion()
	fmt.Fprintln(w, welcomeStyle.Render("Guilty Gear Xrd add-on manager"))
	fmt.Fprintln(w, subtleStyle.Render(fmt.Sprintf("Current version: %s", version)))
	fmt.Fprintln(w)
}

// statusReporter prints one status line per add-on as the manager works.
type statusReporter struct {
	w io.Writer
}

func (r *statusReporter) line(style lipgloss.Style, key, status string) {
	fmt.Fprintf(r.w, "%s %s\n", addOnStyle.Render(key), style.Render(status))
}

func (r *statusReporter) Checked(res manager.CheckResult) {
	a := res.AddOn
	switch {
	case res.Err != nil:
		r.line(errorStyle, a.Key(), "failed: "+res.Err.Error())
	case !res.Changed:
		r.line(okStyle, a.Key(), "up to date ("+displayTag(a.TagName)+")")
	default:
		rel := res.Release
		r.line(warnStyle, a.Key(), "new version found")
		fmt.Fprintln(r.w, infoStyle.Render(fmt.Sprintf("    Version:   %s -> %s", displayTag(a.TagName), rel.TagName)))
		fmt.Fprintln(r.w, infoStyle.Render(fmt.Sprintf("    Published: %s -> %s", displayTag(a.PublishedAt), rel.PublishedAtString())))
		fmt.Fprintln(r.w, infoStyle.Render(fmt.Sprintf("    Source:    %s", rel.URL)))
		if notes := strings.TrimSpace(rel.Notes()); notes != "" {
			fmt.Fprintln(r.w, noteStyle.Render(notes))
		}
	}
}

func (r *statusReporter) Updated(a *registry.AddOn, out installer.UpdateOutcome) {
	switch out.Status {
	case installer.Updated:
		r.line(okStyle, a.Key(), fmt.Sprintf("updated to %s (%d file(s))", out.NewTag, len(out.Downloaded)))
	case installer.NoMatchingAssets:
		r.line(subtleStyle, a.Key(), "no matching assets in "+out.NewTag)
	case installer.UpdateFailed:
		r.line(errorStyle, a.Key(), "failed: "+errorText(out.Err))
	}
}

func (r *statusReporter) Patched(a *registry.AddOn, res installer.PatchResult) {
	switch res.State {
	case installer.Success:
		r.line(okStyle, a.Key(), "patched")
	case installer.NotApplicable:
		r.line(subtleStyle, a.Key(), "skipped (no procedure)")
	case installer.AlreadyPatched:
		r.line(subtleStyle, a.Key(), "already patched")
	case installer.Failed:
		r.line(errorStyle, a.Key(), "failed: "+errorText(res.Err))
		if res.Remediation != "" {
			fmt.Fprintln(r.w, noteStyle.Render(res.Remediation))
		}
	}
	for _, err := range res.CopyErrors {
		fmt.Fprintln(r.w, warnStyle.Render("    "+err.Error()))
	}
}

func (r *statusReporter) Saved(path string, err error) {
	if err != nil {
		fmt.Fprintln(r.w, errorStyle.Render(fmt.Sprintf("Failed to save %s: %v", path, err)))
	}
}

func printSummary(w io.Writer, s *manager.Summary) {
	updated, patched := 0, 0
	for _, u := range s.Updates {
		if u.Status == installer.Updated {
			updated++
		}
	}
	for _, p := range s.Patches {
		if p.State == installer.Success {
			patched++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Summary:"))
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("  Add-ons checked: %d", len(s.Checks))))
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("  New versions found: %d", len(s.Changed()))))
	if s.Declined {
		fmt.Fprintln(w, infoStyle.Render("  Updates declined"))
	}
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("  Updated: %d", updated)))
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("  Patched: %d", patched)))
	fmt.Fprintln(w, infoStyle.Render(fmt.Sprintf("  Failed operations: %d", s.Failures())))
}

func renderAddOnTable(reg *registry.Registry) string {
	rows := make([][]string, 0, len(reg.AddOns))
	for _, a := range reg.All() {
		rows = append(rows, []string{
			a.Key(),
			a.Kind.String(),
			displayTag(a.TagName),
			yesNo(a.Enabled),
			yesNo(a.AutoPatch),
			yesNo(a.Patched),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(subtleStyle).
		Headers("ADD-ON", "KIND", "VERSION", "ENABLED", "AUTO PATCH", "PATCHED").
		Rows(rows...)
	return t.Render()
}

func displayTag(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

// huhPrompter confirms batches with an interactive yes/no form.
type huhPrompter struct{}

func (huhPrompter) Confirm(title, description string) (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title(title).
		Description(description).
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return confirmed, err
}

func selectAddOns(reg *registry.Registry, title string, selected func(*registry.AddOn) bool) ([]string, error) {
	var options []huh.Option[string]
	var chosen []string
	for _, a := range reg.All() {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", a.Key(), a.Kind), a.Key()).Selected(selected(a)))
		if selected(a) {
			chosen = append(chosen, a.Key())
		}
	}

	err := huh.NewMultiSelect[string]().
		Title(title).
		Options(options...).
		Value(&chosen).
		Run()
	if err != nil {
		return nil, err
	}
	sort.Strings(chosen)
	return chosen, nil
}

func showMainMenu() (string, error) {
	var choice string
	err := huh.NewSelect[string]().
		Title("Choose an action").
		Options(
			huh.NewOption("Update all enabled add-ons", "update"),
			huh.NewOption("Check for new versions", "check"),
			huh.NewOption("Patch pending add-ons", "patch"),
			huh.NewOption("Choose enabled add-ons", "enable"),
			huh.NewOption("Choose auto-patched add-ons", "autopatch"),
			huh.NewOption("List add-ons", "list"),
			huh.NewOption("Locate game folder", "locate"),
			huh.NewOption("Quit", "quit"),
		).
		Value(&choice).
		Run()
	return choice, err
}
