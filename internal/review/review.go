package review

import (
	"pubhub/internal/ident"
	"pubhub/internal/model"
)

// kindOrder is the fixed priority the review cursor scans in.
var kindOrder = []model.ResourceKind{
	model.KindConversation,
	model.KindPrompt,
	model.KindApplication,
}

// SessionState is the derived per-publication review state.
type SessionState string

const (
	StateNotStarted SessionState = "NOT_STARTED"
	StateInProgress SessionState = "IN_PROGRESS"
	StateApprovable SessionState = "APPROVABLE"
)

// SeedRecords builds the initial to-review records for a publication:
// one per resource whose target is not a file (files are exempt from
// mandatory review), all unreviewed. Resources whose review url appears
// in missing are excluded so a deleted source cannot permanently block
// an otherwise reviewable request.
func SeedRecords(pub model.Publication, missing map[string]bool) []model.ResourceToReview {
	var records []model.ResourceToReview
	seen := map[string]bool{}
	for _, r := range pub.Resources {
		kind, ok := model.KindOf(ident.Split(r.TargetURL).APIKey)
		if !ok || kind == model.KindFile {
			continue
		}
		if missing[r.ReviewURL] || seen[r.ReviewURL] {
			continue
		}
		seen[r.ReviewURL] = true
		records = append(records, model.ResourceToReview{
			ReviewURL:      r.ReviewURL,
			PublicationURL: pub.URL,
			Reviewed:       false,
		})
	}
	return records
}

// Stop is where the "go to review" cursor lands: the resource to show,
// plus the navigation side effects the UI must apply.
type Stop struct {
	ReviewURL string
	Kind      model.ResourceKind
	// FoldersToOpen holds every ancestor folder of every record in the
	// winning category so the tree renders a connected path to each.
	FoldersToOpen []string
	// Prompts additionally force the side panel open and the editor
	// into preview mode.
	OpenPromptPanel bool
	PreviewMode     bool
}

// Next scans records in category priority order (conversations, prompts,
// applications). Within the first non-empty category it picks the first
// unreviewed record, falling back to the first reviewed one so "Continue
// review" can be re-entered after everything is done.
func Next(records []model.ResourceToReview) (Stop, bool) {
	grouped := map[model.ResourceKind][]model.ResourceToReview{}
	for _, r := range records {
		kind, ok := model.KindOf(ident.Split(r.ReviewURL).APIKey)
		if !ok {
			continue
		}
		grouped[kind] = append(grouped[kind], r)
	}

	for _, kind := range kindOrder {
		group := grouped[kind]
		if len(group) == 0 {
			continue
		}

		pick := group[0]
		for _, r := range group {
			if !r.Reviewed {
				pick = r
				break
			}
		}

		stop := Stop{
			ReviewURL:     pick.ReviewURL,
			Kind:          kind,
			FoldersToOpen: foldersToOpen(group),
		}
		if kind == model.KindPrompt {
			stop.OpenPromptPanel = true
			stop.PreviewMode = true
		}
		return stop, true
	}
	return Stop{}, false
}

func foldersToOpen(group []model.ResourceToReview) []string {
	var folders []string
	seen := map[string]bool{}
	for _, r := range group {
		for _, id := range ident.ParentFolderIDs(r.ReviewURL) {
			if !seen[id] {
				seen[id] = true
				folders = append(folders, id)
			}
		}
	}
	return folders
}

// MarkReviewed flips the record matching reviewURL to reviewed and
// returns whether anything changed. Reviewed is sticky; records are
// never flipped back.
func MarkReviewed(records []model.ResourceToReview, reviewURL string) bool {
	for i := range records {
		if records[i].ReviewURL == reviewURL && !records[i].Reviewed {
			records[i].Reviewed = true
			return true
		}
	}
	return false
}

// Approvable reports whether a publication can be approved: every record
// reviewed and no associated resource missing. A publication with zero
// reviewable resources (e.g. files only) is approvable directly.
func Approvable(records []model.ResourceToReview, hasMissing bool) bool {
	if hasMissing {
		return false
	}
	for _, r := range records {
		if !r.Reviewed {
			return false
		}
	}
	return true
}

// State derives the per-publication review state from its records.
func State(records []model.ResourceToReview, hasMissing bool) SessionState {
	reviewed := 0
	for _, r := range records {
		if r.Reviewed {
			reviewed++
		}
	}
	switch {
	case reviewed == len(records) && !hasMissing:
		return StateApprovable
	case reviewed == 0:
		return StateNotStarted
	default:
		return StateInProgress
	}
}
