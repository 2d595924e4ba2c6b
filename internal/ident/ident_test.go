package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplit(t *testing.T) {
	p := Split("conversations/bucket1/folder1/folder2/My Chat")
	assert.Equal(t, "conversations", p.APIKey)
	assert.Equal(t, "bucket1", p.Bucket)
	assert.Equal(t, "folder1/folder2", p.ParentPath)
	assert.Equal(t, "My Chat", p.Name)
}

func TestSplit_RootEntity(t *testing.T) {
	// Exactly three segments: no parent path
	p := Split("prompts/bucket1/My Prompt")
	assert.Equal(t, "prompts", p.APIKey)
	assert.Equal(t, "bucket1", p.Bucket)
	assert.Equal(t, "", p.ParentPath)
	assert.Equal(t, "My Prompt", p.Name)
}

func TestIsRoot(t *testing.T) {
	assert.True(t, IsRoot("conversations/bucket1"))
	assert.False(t, IsRoot("conversations/bucket1/chat"))
	assert.False(t, IsRoot("conversations"))
}

func TestParentFolderIDs(t *testing.T) {
	ids := ParentFolderIDs("conversations/bucket1/a/b/chat")
	// Root-first, excluding the entity itself
	assert.Equal(t, []string{
		"conversations/bucket1/a",
		"conversations/bucket1/a/b",
	}, ids)
}

func TestParentFolderIDs_RootEntity(t *testing.T) {
	assert.Empty(t, ParentFolderIDs("conversations/bucket1/chat"))
}

func TestConstructPath(t *testing.T) {
	assert.Equal(t, "a/b/c", ConstructPath("a", "b", "c"))
	// Empty segments dropped, no double slashes
	assert.Equal(t, "a/c", ConstructPath("a", "", "c"))
	assert.Equal(t, "c", ConstructPath("", "", "c"))
	assert.Equal(t, "", ConstructPath())
}

func TestEncodeDecodePath(t *testing.T) {
	id := "conversations/bucket1/my folder/chat #1"
	encoded := EncodePath(id)
	assert.Equal(t, "conversations/bucket1/my%20folder/chat%20%231", encoded)
	assert.Equal(t, id, DecodePath(encoded))
}

func TestEncodePath_KeepsSeparators(t *testing.T) {
	encoded := EncodePath("files/public/a/b")
	assert.Equal(t, "files/public/a/b", encoded)
}
