package review

import (
	"testing"

	"pubhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pubURL = "publications/public/01ARZ3NDEKTSV4RRFFQ69G5FAV"

func record(reviewURL string, reviewed bool) model.ResourceToReview {
	return model.ResourceToReview{ReviewURL: reviewURL, PublicationURL: pubURL, Reviewed: reviewed}
}

func TestSeedRecords_SkipsFilesAndMissing(t *testing.T) {
	pub := model.Publication{
		URL: pubURL,
		Resources: []model.PublicationResource{
			model.NewResourceReviewedAtSource("conversations/bucket1/a", "conversations/public/team/a", model.ActionAdd),
			model.NewResourceReviewedAtSource("files/bucket1/doc.pdf", "files/public/team/doc.pdf", model.ActionAdd),
			model.NewResourceReviewedAtSource("prompts/bucket1/p", "prompts/public/team/p", model.ActionAdd),
			model.NewResourceReviewedAtSource("conversations/bucket1/gone", "conversations/public/team/gone", model.ActionAdd),
		},
	}
	records := SeedRecords(pub, map[string]bool{"conversations/bucket1/gone": true})

	require.Len(t, records, 2)
	assert.Equal(t, "conversations/bucket1/a", records[0].ReviewURL)
	assert.Equal(t, "prompts/bucket1/p", records[1].ReviewURL)
	for _, r := range records {
		assert.False(t, r.Reviewed)
		assert.Equal(t, pubURL, r.PublicationURL)
	}
}

func TestNext_ConversationsFirst(t *testing.T) {
	records := []model.ResourceToReview{
		record("prompts/bucket1/p", false),
		record("applications/bucket1/app", false),
		record("conversations/bucket1/c", false),
	}
	stop, ok := Next(records)
	require.True(t, ok)
	assert.Equal(t, model.KindConversation, stop.Kind)
	assert.Equal(t, "conversations/bucket1/c", stop.ReviewURL)
}

func TestNext_PromptsBeforeApplications(t *testing.T) {
	records := []model.ResourceToReview{
		record("applications/bucket1/app", false),
		record("prompts/bucket1/p", false),
	}
	stop, ok := Next(records)
	require.True(t, ok)
	assert.Equal(t, model.KindPrompt, stop.Kind)
	assert.Equal(t, "prompts/bucket1/p", stop.ReviewURL)
	assert.True(t, stop.OpenPromptPanel)
	assert.True(t, stop.PreviewMode)
}

func TestNext_FallsBackToFirstReviewed(t *testing.T) {
	records := []model.ResourceToReview{
		record("conversations/bucket1/a", true),
		record("conversations/bucket1/b", true),
	}
	stop, ok := Next(records)
	require.True(t, ok)
	assert.Equal(t, "conversations/bucket1/a", stop.ReviewURL)
}

func TestNext_UnreviewedWinsWithinCategory(t *testing.T) {
	records := []model.ResourceToReview{
		record("conversations/bucket1/a", true),
		record("conversations/bucket1/b", false),
	}
	stop, ok := Next(records)
	require.True(t, ok)
	assert.Equal(t, "conversations/bucket1/b", stop.ReviewURL)
}

func TestNext_FoldersToOpenCoverWholeCategory(t *testing.T) {
	records := []model.ResourceToReview{
		record("conversations/bucket1/x/y/a", false),
		record("conversations/bucket1/z/b", true),
	}
	stop, ok := Next(records)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{
		"conversations/bucket1/x",
		"conversations/bucket1/x/y",
		"conversations/bucket1/z",
	}, stop.FoldersToOpen)
}

func TestNext_Empty(t *testing.T) {
	_, ok := Next(nil)
	assert.False(t, ok)
}

func TestMarkReviewed_Sticky(t *testing.T) {
	records := []model.ResourceToReview{record("conversations/bucket1/a", false)}

	assert.True(t, MarkReviewed(records, "conversations/bucket1/a"))
	assert.True(t, records[0].Reviewed)

	// Second visit changes nothing
	assert.False(t, MarkReviewed(records, "conversations/bucket1/a"))
	assert.True(t, records[0].Reviewed)

	assert.False(t, MarkReviewed(records, "conversations/bucket1/unknown"))
}

func TestApprovable_Gating(t *testing.T) {
	records := []model.ResourceToReview{
		record("conversations/bucket1/a", false),
		record("conversations/bucket1/b", false),
	}
	assert.False(t, Approvable(records, false))

	records[0].Reviewed = true
	assert.False(t, Approvable(records, false))

	records[1].Reviewed = true
	assert.True(t, Approvable(records, false))

	// A missing resource blocks approval regardless of reviewed flags
	assert.False(t, Approvable(records, true))
}

func TestApprovable_ZeroReviewableResources(t *testing.T) {
	// Files-only publication: review skipped, direct approve allowed
	assert.True(t, Approvable(nil, false))
	assert.False(t, Approvable(nil, true))
}

func TestState(t *testing.T) {
	records := []model.ResourceToReview{
		record("conversations/bucket1/a", false),
		record("conversations/bucket1/b", false),
	}
	assert.Equal(t, StateNotStarted, State(records, false))

	records[0].Reviewed = true
	assert.Equal(t, StateInProgress, State(records, false))

	records[1].Reviewed = true
	assert.Equal(t, StateApprovable, State(records, false))
	assert.Equal(t, StateInProgress, State(records, true))
}
