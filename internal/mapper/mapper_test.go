package mapper

import (
	"testing"

	"pubhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResources_SingleConversation(t *testing.T) {
	resources := BuildResources(BuildInput{
		DestPath: "team",
		Action:   model.ActionAdd,
		Entities: []model.EntityInfo{
			{ID: "conversations/bucket1/Demo", Name: "Demo", Kind: model.KindConversation},
		},
	})

	require.Len(t, resources, 1)
	assert.Equal(t, "conversations/bucket1/Demo", resources[0].SourceURL)
	assert.Equal(t, "conversations/public/team/Demo", resources[0].TargetURL)
	// Pending request: reviewers open the author's original item
	assert.Equal(t, "conversations/bucket1/Demo", resources[0].ReviewURL)
	assert.Equal(t, model.ActionAdd, resources[0].Action)
}

func TestBuildResources_FolderPreservesNesting(t *testing.T) {
	resources := BuildResources(BuildInput{
		DestPath: "pub/path",
		Action:   model.ActionAdd,
		Folders: []FolderSelection{{
			ID: "conversations/bucket1/F",
			Items: []model.EntityInfo{
				{ID: "conversations/bucket1/F/x/y", Name: "y", Kind: model.KindConversation},
			},
		}},
	})

	require.Len(t, resources, 1)
	// Nesting preserved, folder's own name dropped
	assert.Equal(t, "conversations/public/pub/path/x/y", resources[0].TargetURL)
	assert.Equal(t, "conversations/bucket1/F/x/y", resources[0].SourceURL)
}

func TestBuildResources_ItemOutsideFolderSkipped(t *testing.T) {
	resources := BuildResources(BuildInput{
		DestPath: "team",
		Action:   model.ActionAdd,
		Folders: []FolderSelection{{
			ID: "conversations/bucket1/F",
			Items: []model.EntityInfo{
				{ID: "conversations/bucket1/G/stray", Name: "stray", Kind: model.KindConversation},
			},
		}},
	})
	assert.Empty(t, resources)
}

func TestBuildResources_AttachmentsMatchedByDecodedURL(t *testing.T) {
	resources := BuildResources(BuildInput{
		DestPath: "team",
		Action:   model.ActionAdd,
		Entities: []model.EntityInfo{
			{ID: "conversations/bucket1/Demo", Name: "Demo", Kind: model.KindConversation},
		},
		Links: []AttachmentLink{
			{URL: "files/bucket1/report%20v2.pdf"},
			{URL: "https://external.example.com/img.png"},
		},
		Uploads: []model.EntityInfo{
			{ID: "files/bucket1/report v2.pdf", Name: "report v2.pdf", Kind: model.KindFile},
		},
	})

	require.Len(t, resources, 2)
	// Matched attachment mapped 1:1; unmatched external link dropped
	assert.Equal(t, "files/bucket1/report v2.pdf", resources[1].SourceURL)
	assert.Equal(t, "files/public/team/report v2.pdf", resources[1].TargetURL)
}

func TestBuildResources_LinkedFileAlsoSelectedMappedOnce(t *testing.T) {
	resources := BuildResources(BuildInput{
		DestPath: "team",
		Action:   model.ActionAdd,
		Entities: []model.EntityInfo{
			{ID: "files/bucket1/report.pdf", Name: "report.pdf", Kind: model.KindFile},
		},
		Links: []AttachmentLink{
			{URL: "files/bucket1/report.pdf"},
		},
		Uploads: []model.EntityInfo{
			{ID: "files/bucket1/report.pdf", Name: "report.pdf", Kind: model.KindFile},
		},
	})

	require.Len(t, resources, 1)
	assert.Equal(t, "files/public/team/report.pdf", resources[0].TargetURL)
}

func TestBuildResources_Delete(t *testing.T) {
	resources := BuildResources(BuildInput{
		Action: model.ActionDelete,
		Entities: []model.EntityInfo{
			{ID: "conversations/public/team/Demo", Name: "Demo", Kind: model.KindConversation},
		},
	})

	require.Len(t, resources, 1)
	assert.Empty(t, resources[0].SourceURL)
	assert.Equal(t, "conversations/public/team/Demo", resources[0].TargetURL)
	assert.Equal(t, "conversations/public/team/Demo", resources[0].ReviewURL)
	assert.Equal(t, model.ActionDelete, resources[0].Action)
}

func TestResourceTypes(t *testing.T) {
	types := ResourceTypes([]model.PublicationResource{
		{TargetURL: "conversations/public/team/a"},
		{TargetURL: "files/public/team/b.pdf"},
		{TargetURL: "conversations/public/team/c"},
	})
	assert.Equal(t, []model.BackendResourceType{model.TypeConversation, model.TypeFile}, types)
}
