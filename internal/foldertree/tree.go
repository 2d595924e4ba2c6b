package foldertree

import (
	"strings"

	"pubhub/internal/ident"
	"pubhub/internal/model"
)

// The folder hierarchy is derived, never stored: nodes reference their
// parent by id prefix and every query below recomputes adjacency by
// scanning the flat list. Well-formed input cannot cycle (child paths are
// strictly longer than their parents'), but every walk still carries a
// visited set so corrupted data terminates instead of looping.

// ChildAndCurrentFolderIDs returns the id of the folder itself plus every
// descendant folder id, by following folderId back-references.
func ChildAndCurrentFolderIDs(folderID string, all []model.FolderNode) []string {
	visited := map[string]bool{}
	return descend(folderID, all, visited)
}

func descend(folderID string, all []model.FolderNode, visited map[string]bool) []string {
	if visited[folderID] {
		return nil
	}
	visited[folderID] = true

	ids := []string{folderID}
	for _, f := range all {
		if f.FolderID == folderID {
			ids = append(ids, descend(f.ID, all, visited)...)
		}
	}
	return ids
}

// ParentAndCurrentFolders ascends from folderID to the root, returning the
// folder itself first. Stops if a folder is revisited.
func ParentAndCurrentFolders(folderID string, all []model.FolderNode) []model.FolderNode {
	byID := make(map[string]model.FolderNode, len(all))
	for _, f := range all {
		byID[f.ID] = f
	}

	var chain []model.FolderNode
	visited := map[string]bool{}
	current := folderID
	for current != "" && !visited[current] {
		visited[current] = true
		f, ok := byID[current]
		if !ok {
			break
		}
		chain = append(chain, f)
		current = f.FolderID
	}
	return chain
}

// Depth returns the nesting depth of a folder's subtree: 1 for a leaf,
// 1 + the deepest child otherwise. Used to enforce the maximum nesting
// level before a move or publish.
func Depth(folder model.FolderNode, all []model.FolderNode) int {
	visited := map[string]bool{}
	return depth(folder, all, visited)
}

func depth(folder model.FolderNode, all []model.FolderNode, visited map[string]bool) int {
	if visited[folder.ID] {
		return 0
	}
	visited[folder.ID] = true

	max := 0
	for _, f := range all {
		if f.FolderID != folder.ID {
			continue
		}
		if d := depth(f, all, visited); d > max {
			max = d
		}
	}
	return 1 + max
}

// FoldersFromIDs materializes folder nodes from a set of entity or folder
// ids by path decomposition. Every ancestor path of every id becomes a
// node; duplicates collapse.
func FoldersFromIDs(ids []string, kind model.ResourceKind) []model.FolderNode {
	seen := map[string]bool{}
	var folders []model.FolderNode
	for _, id := range ids {
		folderIDs := ident.ParentFolderIDs(id)
		if ident.IsFolderID(id) {
			folderIDs = append(folderIDs, strings.TrimSuffix(id, "/"))
		}
		for _, fid := range folderIDs {
			if seen[fid] {
				continue
			}
			seen[fid] = true
			parts := ident.Split(fid)
			parent := ident.ConstructPath(parts.APIKey, parts.Bucket, parts.ParentPath)
			folders = append(folders, model.FolderNode{
				ID:       fid,
				Name:     parts.Name,
				FolderID: parent,
				Kind:     kind,
			})
		}
	}
	return folders
}

// FilterParams drives Filtered. SectionFilter scopes the walk (e.g. only
// folders under the chat root); SearchTerm switches from browsing to
// searching.
type FilterParams struct {
	AllFolders    []model.FolderNode
	Entities      []model.EntityInfo
	SectionFilter func(model.FolderNode) bool
	SearchTerm    string
	IncludeEmpty  bool
}

// Filtered applies the three-stage folder filter:
//  1. scope to section folders expanded to their full subtrees,
//  2. match folders by name, or keep folders containing a matching entity,
//  3. close root-ward so any match pulls in its whole ancestor chain.
//
// With an active search term, folders that pass the section filter but
// contain no match are excluded even when IncludeEmpty is set; empty-folder
// inclusion only applies to the unfiltered browse view.
func Filtered(p FilterParams) []model.FolderNode {
	if p.SectionFilter == nil {
		p.SectionFilter = func(model.FolderNode) bool { return true }
	}

	scoped := map[string]bool{}
	for _, f := range p.AllFolders {
		if !p.SectionFilter(f) {
			continue
		}
		for _, id := range ChildAndCurrentFolderIDs(f.ID, p.AllFolders) {
			scoped[id] = true
		}
	}

	term := strings.ToLower(strings.TrimSpace(p.SearchTerm))
	if term == "" {
		return collect(p.AllFolders, browseSet(p, scoped))
	}
	return collect(p.AllFolders, searchSet(p, scoped, term))
}

func browseSet(p FilterParams, scoped map[string]bool) map[string]bool {
	if p.IncludeEmpty {
		return scoped
	}
	keep := map[string]bool{}
	for _, e := range p.Entities {
		if e.FolderID == "" || !scoped[e.FolderID] {
			continue
		}
		for _, f := range ParentAndCurrentFolders(e.FolderID, p.AllFolders) {
			keep[f.ID] = true
		}
	}
	return keep
}

func searchSet(p FilterParams, scoped map[string]bool, term string) map[string]bool {
	matched := map[string]bool{}
	for _, f := range p.AllFolders {
		if scoped[f.ID] && strings.Contains(strings.ToLower(f.Name), term) {
			matched[f.ID] = true
		}
	}
	for _, e := range p.Entities {
		if e.FolderID != "" && scoped[e.FolderID] && strings.Contains(strings.ToLower(e.Name), term) {
			matched[e.FolderID] = true
		}
	}

	// Root-ward closure: a deep match renders as a connected path
	keep := map[string]bool{}
	for id := range matched {
		for _, f := range ParentAndCurrentFolders(id, p.AllFolders) {
			keep[f.ID] = true
		}
	}
	return keep
}

func collect(all []model.FolderNode, keep map[string]bool) []model.FolderNode {
	result := make([]model.FolderNode, 0, len(keep))
	for _, f := range all {
		if keep[f.ID] {
			result = append(result, f)
		}
	}
	return result
}
