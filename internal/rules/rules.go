package rules

import (
	"strings"

	"pubhub/internal/model"
)

// ByPath returns every rule record governing a target publish path: the
// record at the path itself plus records inherited from every ancestor
// path, keyed by the path they are attached to. Shown to rule authors as
// "other rules that also apply".
func ByPath(path string, records map[string][]model.PublicationRule) map[string][]model.PublicationRule {
	result := map[string][]model.PublicationRule{}
	for _, p := range ancestorPaths(path) {
		if rs, ok := records[p]; ok {
			result[p] = rs
		}
	}
	return result
}

// ancestorPaths lists "", "a", "a/b", ... up to and including path.
func ancestorPaths(path string) []string {
	paths := []string{""}
	if path == "" {
		return paths
	}
	segments := strings.Split(path, "/")
	for i := range segments {
		paths = append(paths, strings.Join(segments[:i+1], "/"))
	}
	return paths
}

// Changes is the result of diffing two rule sets.
type Changes struct {
	Created []model.PublicationRule
	Deleted []model.PublicationRule
}

// Diff compares rule sets by source. A rule counts as created when its
// source is absent from old, or present with a different target set;
// deleted is the symmetric condition against new. Target comparison is
// by content, order-insensitive. Rules identical in both sets appear in
// neither list.
//
// A source never collapses into another and targets are never reordered
// in the output: AND-across-sources / OR-within-targets semantics must
// survive the diff untouched.
func Diff(old, new []model.PublicationRule) Changes {
	oldBySource := bySource(old)
	newBySource := bySource(new)

	var changes Changes
	for _, r := range new {
		prev, ok := oldBySource[r.Source]
		if !ok || !sameRule(prev, r) {
			changes.Created = append(changes.Created, r)
		}
	}
	for _, r := range old {
		next, ok := newBySource[r.Source]
		if !ok || !sameRule(next, r) {
			changes.Deleted = append(changes.Deleted, r)
		}
	}
	return changes
}

func bySource(rules []model.PublicationRule) map[string]model.PublicationRule {
	m := make(map[string]model.PublicationRule, len(rules))
	for _, r := range rules {
		m[r.Source] = r
	}
	return m
}

func sameRule(a, b model.PublicationRule) bool {
	return a.Function == b.Function && sameTargets(a.Targets, b.Targets)
}

func sameTargets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	for _, t := range b {
		counts[t]--
		if counts[t] < 0 {
			return false
		}
	}
	return true
}

// Equal reports whether two rule sets carry the same clauses, ignoring
// rule order and target order. Used for the "No changes" / "See changes"
// indicator when a publication is opened.
func Equal(a, b []model.PublicationRule) bool {
	d := Diff(a, b)
	return len(d.Created) == 0 && len(d.Deleted) == 0
}
