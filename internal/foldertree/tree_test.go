package foldertree

import (
	"testing"

	"pubhub/internal/model"

	"github.com/stretchr/testify/assert"
)

func folder(id, parent string) model.FolderNode {
	parts := splitName(id)
	return model.FolderNode{ID: id, Name: parts, FolderID: parent, Kind: model.KindConversation}
}

func splitName(id string) string {
	for i := len(id) - 1; i >= 0; i-- {
		if id[i] == '/' {
			return id[i+1:]
		}
	}
	return id
}

func testFolders() []model.FolderNode {
	// conversations/bucket1/a
	//   conversations/bucket1/a/b
	//     conversations/bucket1/a/b/c
	//   conversations/bucket1/a/d
	// conversations/bucket1/x
	return []model.FolderNode{
		folder("conversations/bucket1/a", "conversations/bucket1"),
		folder("conversations/bucket1/a/b", "conversations/bucket1/a"),
		folder("conversations/bucket1/a/b/c", "conversations/bucket1/a/b"),
		folder("conversations/bucket1/a/d", "conversations/bucket1/a"),
		folder("conversations/bucket1/x", "conversations/bucket1"),
	}
}

func TestChildAndCurrentFolderIDs(t *testing.T) {
	all := testFolders()
	ids := ChildAndCurrentFolderIDs("conversations/bucket1/a", all)
	assert.ElementsMatch(t, []string{
		"conversations/bucket1/a",
		"conversations/bucket1/a/b",
		"conversations/bucket1/a/b/c",
		"conversations/bucket1/a/d",
	}, ids)
}

func TestChildAndCurrentFolderIDs_CyclicInput(t *testing.T) {
	// Malformed data with a back edge must still terminate
	all := []model.FolderNode{
		folder("conversations/bucket1/a", "conversations/bucket1/a/b"),
		folder("conversations/bucket1/a/b", "conversations/bucket1/a"),
	}
	ids := ChildAndCurrentFolderIDs("conversations/bucket1/a", all)
	assert.ElementsMatch(t, []string{
		"conversations/bucket1/a",
		"conversations/bucket1/a/b",
	}, ids)
}

func TestParentAndCurrentFolders(t *testing.T) {
	all := testFolders()
	chain := ParentAndCurrentFolders("conversations/bucket1/a/b/c", all)
	ids := make([]string, len(chain))
	for i, f := range chain {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{
		"conversations/bucket1/a/b/c",
		"conversations/bucket1/a/b",
		"conversations/bucket1/a",
	}, ids)
}

func TestDepth(t *testing.T) {
	all := testFolders()

	// Leaf has depth 1
	assert.Equal(t, 1, Depth(all[4], all)) // x
	assert.Equal(t, 1, Depth(all[2], all)) // a/b/c

	// 1 + max(depth of direct children)
	assert.Equal(t, 2, Depth(all[1], all)) // a/b
	assert.Equal(t, 3, Depth(all[0], all)) // a
}

func TestFoldersFromIDs(t *testing.T) {
	folders := FoldersFromIDs([]string{
		"conversations/bucket1/a/b/chat1",
		"conversations/bucket1/a/chat2",
	}, model.KindConversation)

	byID := map[string]model.FolderNode{}
	for _, f := range folders {
		byID[f.ID] = f
	}
	assert.Len(t, folders, 2)
	assert.Equal(t, "conversations/bucket1", byID["conversations/bucket1/a"].FolderID)
	assert.Equal(t, "conversations/bucket1/a", byID["conversations/bucket1/a/b"].FolderID)
	assert.Equal(t, "b", byID["conversations/bucket1/a/b"].Name)
}

func TestFiltered_SearchPullsInAncestors(t *testing.T) {
	all := testFolders()

	// Search matches only the grandchild folder "c"; result must include
	// the grandchild plus both ancestors so the path renders connected.
	result := Filtered(FilterParams{
		AllFolders:   all,
		SearchTerm:   "c",
		IncludeEmpty: false,
	})

	ids := make([]string, len(result))
	for i, f := range result {
		ids[i] = f.ID
	}
	assert.ElementsMatch(t, []string{
		"conversations/bucket1/a",
		"conversations/bucket1/a/b",
		"conversations/bucket1/a/b/c",
	}, ids)
}

func TestFiltered_SearchIgnoresIncludeEmpty(t *testing.T) {
	all := testFolders()

	// "x" passes the section filter but contains nothing matching "chat";
	// it must be excluded even with IncludeEmpty set.
	result := Filtered(FilterParams{
		AllFolders: all,
		Entities: []model.EntityInfo{
			{ID: "conversations/bucket1/a/d/my chat", Name: "my chat", FolderID: "conversations/bucket1/a/d", Kind: model.KindConversation},
		},
		SearchTerm:   "chat",
		IncludeEmpty: true,
	})

	ids := make([]string, len(result))
	for i, f := range result {
		ids[i] = f.ID
	}
	assert.ElementsMatch(t, []string{
		"conversations/bucket1/a",
		"conversations/bucket1/a/d",
	}, ids)
}

func TestFiltered_BrowseIncludeEmpty(t *testing.T) {
	all := testFolders()

	result := Filtered(FilterParams{AllFolders: all, IncludeEmpty: true})
	assert.Len(t, result, len(all))

	// Without IncludeEmpty only folders holding entities (plus ancestors) remain
	result = Filtered(FilterParams{
		AllFolders: all,
		Entities: []model.EntityInfo{
			{ID: "conversations/bucket1/a/b/chat", Name: "chat", FolderID: "conversations/bucket1/a/b", Kind: model.KindConversation},
		},
	})
	ids := make([]string, len(result))
	for i, f := range result {
		ids[i] = f.ID
	}
	assert.ElementsMatch(t, []string{
		"conversations/bucket1/a",
		"conversations/bucket1/a/b",
	}, ids)
}

func TestFiltered_SectionFilterScopesSubtrees(t *testing.T) {
	all := testFolders()

	result := Filtered(FilterParams{
		AllFolders: all,
		SectionFilter: func(f model.FolderNode) bool {
			return f.ID == "conversations/bucket1/a/b"
		},
		IncludeEmpty: true,
	})
	ids := make([]string, len(result))
	for i, f := range result {
		ids[i] = f.ID
	}
	assert.ElementsMatch(t, []string{
		"conversations/bucket1/a/b",
		"conversations/bucket1/a/b/c",
	}, ids)
}
