// Package selection holds the market-process group/option selection of a session.
//
// Selections are plain values: every function here returns a new state and
// never mutates its input. The Manager is the only place a live state is kept.
package selection

import (
	"fmt"
	"strings"

	"go-elhub-stats/internal/model"
)

// EmptySelectionError is returned when the user has deselected everything a
// chart needs. It is recoverable: callers show Error() instead of a chart.
type EmptySelectionError struct {
	Missing []string
}

func (e *EmptySelectionError) Error() string {
	return fmt.Sprintf("Please select at least one %s", strings.Join(e.Missing, " and one "))
}

// OnGroupChange returns every option whose group is in selectedGroups, in the
// order of allOptions.
func OnGroupChange(allOptions []string, optionGroup map[string]string, selectedGroups []string) []string {
	selected := toSet(selectedGroups)
	out := make([]string, 0, len(allOptions))
	for _, opt := range allOptions {
		if g, ok := optionGroup[opt]; ok && selected[g] {
			out = append(out, opt)
		}
	}
	return out
}

// DefaultGroups returns every group except the named exclusions.
func DefaultGroups(groups, excluded []string) []string {
	skip := toSet(excluded)
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		if !skip[g] {
			out = append(out, g)
		}
	}
	return out
}

// DefaultStatus picks preferred when it is offered, else the first status.
func DefaultStatus(statuses []string, preferred string) string {
	for _, s := range statuses {
		if s == preferred {
			return s
		}
	}
	if len(statuses) > 0 {
		return statuses[0]
	}
	return ""
}

// New builds the initial state of a session.
func New(catalog model.Catalog, excludedGroups []string, preferredStatus string) model.SelectionState {
	state := model.SelectionState{Status: DefaultStatus(catalog.Statuses, preferredStatus)}
	return WithGroups(state, catalog, DefaultGroups(catalog.Groups, excludedGroups))
}

// WithGroups replaces the selected groups and recomputes the options from them.
// Unknown groups are ignored.
func WithGroups(state model.SelectionState, catalog model.Catalog, groups []string) model.SelectionState {
	known := toSet(catalog.Groups)
	next := model.SelectionState{Status: state.Status, SelectedGroups: []string{}}
	for _, g := range dedupe(groups) {
		if known[g] {
			next.SelectedGroups = append(next.SelectedGroups, g)
		}
	}
	next.SelectedOptions = OnGroupChange(catalog.Options, catalog.OptionGroup, next.SelectedGroups)
	return next
}

// WithOptions narrows the option selection without touching the groups.
// Options are kept in catalog order; unknown options are ignored.
func WithOptions(state model.SelectionState, catalog model.Catalog, options []string) model.SelectionState {
	want := toSet(options)
	next := model.SelectionState{
		Status:          state.Status,
		SelectedGroups:  append([]string(nil), state.SelectedGroups...),
		SelectedOptions: []string{},
	}
	for _, opt := range catalog.Options {
		if want[opt] {
			next.SelectedOptions = append(next.SelectedOptions, opt)
		}
	}
	return next
}

// WithStatus selects the process status shown in the chart.
func WithStatus(state model.SelectionState, catalog model.Catalog, status string) (model.SelectionState, error) {
	for _, s := range catalog.Statuses {
		if s == status {
			next := state
			next.SelectedGroups = append([]string(nil), state.SelectedGroups...)
			next.SelectedOptions = append([]string(nil), state.SelectedOptions...)
			next.Status = status
			return next, nil
		}
	}
	return state, fmt.Errorf("unknown status %q", status)
}

// Validate reports an EmptySelectionError when nothing chartable is selected.
func Validate(state model.SelectionState) error {
	var missing []string
	if len(state.SelectedOptions) == 0 {
		missing = append(missing, "market process")
	}
	if state.Status == "" {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return &EmptySelectionError{Missing: missing}
	}
	return nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
