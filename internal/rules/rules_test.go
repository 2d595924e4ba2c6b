package rules

import (
	"testing"

	"pubhub/internal/model"

	"github.com/stretchr/testify/assert"
)

func rule(source string, targets ...string) model.PublicationRule {
	return model.PublicationRule{Source: source, Function: model.FuncEqual, Targets: targets}
}

func TestByPath(t *testing.T) {
	records := map[string][]model.PublicationRule{
		"":              {rule("Title", "Manager")},
		"team":          {rule("Department", "Sales")},
		"team/east":     {rule("Region", "EMEA")},
		"other":         {rule("Department", "HR")},
		"team/east/sub": {rule("Level", "Senior")},
	}

	got := ByPath("team/east", records)
	assert.Len(t, got, 3)
	assert.Contains(t, got, "")
	assert.Contains(t, got, "team")
	assert.Contains(t, got, "team/east")
	assert.NotContains(t, got, "other")
	assert.NotContains(t, got, "team/east/sub")
}

func TestByPath_Root(t *testing.T) {
	records := map[string][]model.PublicationRule{
		"":     {rule("Title", "Manager")},
		"team": {rule("Department", "Sales")},
	}
	got := ByPath("", records)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "")
}

func TestDiff_SelfIsEmpty(t *testing.T) {
	set := []model.PublicationRule{
		rule("Department", "Sales", "Marketing"),
		rule("Region", "EMEA"),
	}
	d := Diff(set, set)
	assert.Empty(t, d.Created)
	assert.Empty(t, d.Deleted)
}

func TestDiff_TargetOrderInsensitive(t *testing.T) {
	old := []model.PublicationRule{rule("Department", "Sales", "Marketing")}
	new := []model.PublicationRule{rule("Department", "Marketing", "Sales")}
	d := Diff(old, new)
	assert.Empty(t, d.Created)
	assert.Empty(t, d.Deleted)
}

func TestDiff_ChangedTargetsCountBothWays(t *testing.T) {
	old := []model.PublicationRule{rule("Department", "Sales")}
	new := []model.PublicationRule{rule("Department", "Sales", "Marketing")}

	d := Diff(old, new)
	assert.Len(t, d.Created, 1)
	assert.Len(t, d.Deleted, 1)
	assert.Equal(t, []string{"Sales", "Marketing"}, d.Created[0].Targets)
	assert.Equal(t, []string{"Sales"}, d.Deleted[0].Targets)
}

func TestDiff_Swap(t *testing.T) {
	r1 := []model.PublicationRule{rule("Department", "Sales"), rule("Region", "EMEA")}
	r2 := []model.PublicationRule{rule("Department", "Sales"), rule("Title", "Manager")}

	forward := Diff(r1, r2)
	backward := Diff(r2, r1)

	// Re-running with swapped arguments swaps created/deleted exactly
	assert.Equal(t, forward.Created, backward.Deleted)
	assert.Equal(t, forward.Deleted, backward.Created)

	// Created and deleted are disjoint in source
	created := map[string]bool{}
	for _, r := range forward.Created {
		created[r.Source] = true
	}
	for _, r := range forward.Deleted {
		assert.False(t, created[r.Source], "source in both lists: %s", r.Source)
	}
	assert.Equal(t, "Title", forward.Created[0].Source)
	assert.Equal(t, "Region", forward.Deleted[0].Source)
}

func TestDiff_FunctionChangeIsAChange(t *testing.T) {
	old := []model.PublicationRule{{Source: "Department", Function: model.FuncEqual, Targets: []string{"Sales"}}}
	new := []model.PublicationRule{{Source: "Department", Function: model.FuncContain, Targets: []string{"Sales"}}}
	d := Diff(old, new)
	assert.Len(t, d.Created, 1)
	assert.Len(t, d.Deleted, 1)
}

func TestDiff_DuplicateTargetMultiplicity(t *testing.T) {
	old := []model.PublicationRule{rule("Department", "Sales", "Sales")}
	new := []model.PublicationRule{rule("Department", "Sales", "Marketing")}
	d := Diff(old, new)
	assert.Len(t, d.Created, 1)
	assert.Len(t, d.Deleted, 1)
}

func TestEqual(t *testing.T) {
	a := []model.PublicationRule{rule("Department", "Sales"), rule("Region", "EMEA")}
	b := []model.PublicationRule{rule("Region", "EMEA"), rule("Department", "Sales")}
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, a[:1]))
}
