package mapper

import (
	"strings"

	"pubhub/internal/ident"
	"pubhub/internal/model"
)

// FolderSelection is one selected folder plus the leaf entities it
// contains. Contents come from the live listing at publish time.
type FolderSelection struct {
	ID    string
	Items []model.EntityInfo
}

// AttachmentLink is a file reference found inside an included
// conversation body. URL is percent-encoded as stored on the wire.
type AttachmentLink struct {
	URL string `json:"url"`
}

// BuildInput describes one publish or unpublish request: a destination
// path inside the public bucket, the selected top-level entities, any
// selected folders with their contents, and the files physically
// uploaded as part of the same request.
type BuildInput struct {
	DestPath string
	Action   model.PublishAction
	Entities []model.EntityInfo
	Folders  []FolderSelection
	Links    []AttachmentLink
	Uploads  []model.EntityInfo
}

// BuildResources converts a selection into publication resource
// descriptors.
//
// A single entity maps to apiKey/public/destPath/name. A folder maps
// every contained leaf by stripping the folder's own id prefix and
// re-rooting the remainder under the destination, so relative nesting
// survives but the folder's own name does not.
//
// Attachment links are matched 1:1 against the uploaded file set by
// decoded URL; unmatched links are assumed external and silently
// dropped — callers treat that as expected, not an error.
func BuildResources(in BuildInput) []model.PublicationResource {
	if in.Action == model.ActionDelete {
		return buildDeletes(in)
	}

	var resources []model.PublicationResource
	direct := make(map[string]bool, len(in.Entities))
	for _, e := range in.Entities {
		parts := ident.Split(e.ID)
		target := ident.ConstructPath(parts.APIKey, ident.PublicBucket, in.DestPath, e.Name)
		resources = append(resources, model.NewResourceReviewedAtSource(e.ID, target, model.ActionAdd))
		direct[e.ID] = true
	}

	for _, f := range in.Folders {
		prefix := strings.TrimSuffix(f.ID, "/") + "/"
		apiKey := ident.Split(f.ID).APIKey
		for _, item := range f.Items {
			rel := strings.TrimPrefix(item.ID, prefix)
			if rel == item.ID {
				// Item not under this folder; selection and listing
				// disagree, skip rather than fabricate a target
				continue
			}
			target := ident.ConstructPath(apiKey, ident.PublicBucket, in.DestPath, rel)
			resources = append(resources, model.NewResourceReviewedAtSource(item.ID, target, model.ActionAdd))
		}
	}

	resources = append(resources, matchAttachments(in, direct)...)
	return resources
}

func buildDeletes(in BuildInput) []model.PublicationResource {
	var resources []model.PublicationResource
	for _, e := range in.Entities {
		resources = append(resources, model.PublicationResource{
			TargetURL: e.ID,
			ReviewURL: e.ID,
			Action:    model.ActionDelete,
		})
	}
	for _, f := range in.Folders {
		for _, item := range f.Items {
			resources = append(resources, model.PublicationResource{
				TargetURL: item.ID,
				ReviewURL: item.ID,
				Action:    model.ActionDelete,
			})
		}
	}
	return resources
}

// matchAttachments resolves links against the uploaded file set. Files
// already mapped as direct selections are skipped so a link to a selected
// file does not publish it twice.
func matchAttachments(in BuildInput, direct map[string]bool) []model.PublicationResource {
	if len(in.Links) == 0 {
		return nil
	}
	uploaded := make(map[string]model.EntityInfo, len(in.Uploads))
	for _, u := range in.Uploads {
		uploaded[u.ID] = u
	}

	var resources []model.PublicationResource
	seen := map[string]bool{}
	for _, link := range in.Links {
		decoded := ident.DecodePath(link.URL)
		file, ok := uploaded[decoded]
		if !ok || seen[decoded] || direct[decoded] {
			continue
		}
		seen[decoded] = true
		target := ident.ConstructPath(string(model.KindFile), ident.PublicBucket, in.DestPath, file.Name)
		resources = append(resources, model.NewResourceReviewedAtSource(decoded, target, model.ActionAdd))
	}
	return resources
}

// ResourceTypes derives the distinct backend resource types present in a
// resource list, in first-seen order.
func ResourceTypes(resources []model.PublicationResource) []model.BackendResourceType {
	var types []model.BackendResourceType
	seen := map[model.BackendResourceType]bool{}
	for _, r := range resources {
		kind, ok := model.KindOf(ident.Split(r.TargetURL).APIKey)
		if !ok {
			continue
		}
		t := kind.BackendType()
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	return types
}
