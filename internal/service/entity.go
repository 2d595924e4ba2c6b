package service

import (
	"context"
	"fmt"
	"time"

	"pubhub/internal/db"
	"pubhub/internal/foldertree"
	"pubhub/internal/ident"
	"pubhub/internal/model"
)

// EntityService reads the mirrored resource listing. Folders are not
// stored anywhere; they are derived from entity ids on every read.
type EntityService struct {
	queries *db.Queries
}

func NewEntityService(queries *db.Queries) *EntityService {
	return &EntityService{queries: queries}
}

// Listing is one section of the resource browser: the derived folder
// tree plus the leaf entities.
type Listing struct {
	Folders  []model.FolderNode `json:"folders"`
	Entities []model.EntityInfo `json:"entities"`
}

// ListingParams selects and filters one listing request.
type ListingParams struct {
	Kind         model.ResourceKind
	Bucket       string
	SectionPath  string
	SearchTerm   string
	IncludeEmpty bool
}

// GetListing lists entities of one kind in one bucket and derives the
// folder tree over them.
func (s *EntityService) GetListing(ctx context.Context, p ListingParams) (*Listing, error) {
	rows, err := s.queries.ListEntities(ctx, string(p.Kind), p.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	entities := make([]model.EntityInfo, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, dbEntityToModel(row))
		ids = append(ids, row.ID)
	}

	allFolders := foldertree.FoldersFromIDs(ids, p.Kind)

	var section func(model.FolderNode) bool
	if p.SectionPath != "" {
		sectionID := ident.ConstructPath(string(p.Kind), p.Bucket, p.SectionPath)
		section = func(f model.FolderNode) bool { return f.ID == sectionID }
	}

	folders := foldertree.Filtered(foldertree.FilterParams{
		AllFolders:    allFolders,
		Entities:      entities,
		SectionFilter: section,
		SearchTerm:    p.SearchTerm,
		IncludeEmpty:  p.IncludeEmpty,
	})

	return &Listing{Folders: folders, Entities: entities}, nil
}

// GetEntity fetches a single entity by id.
func (s *EntityService) GetEntity(ctx context.Context, id string) (*model.EntityInfo, error) {
	row, err := s.queries.GetEntityByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get entity: %w", err)
	}
	e := dbEntityToModel(row)
	return &e, nil
}

// FolderContents resolves the leaf entities under one folder id,
// including nested subfolders. Used when a publish request selects a
// whole folder.
func (s *EntityService) FolderContents(ctx context.Context, folderID string) ([]model.EntityInfo, error) {
	parts := ident.Split(folderID)
	kind, ok := model.KindOf(parts.APIKey)
	if !ok {
		return nil, fmt.Errorf("unknown resource kind in folder id %q", folderID)
	}

	rows, err := s.queries.ListEntities(ctx, string(kind), parts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}

	prefix := folderID
	if !ident.IsFolderID(prefix) {
		prefix += "/"
	}

	var items []model.EntityInfo
	for _, row := range rows {
		if len(row.ID) > len(prefix) && row.ID[:len(prefix)] == prefix {
			items = append(items, dbEntityToModel(row))
		}
	}
	return items, nil
}

func dbEntityToModel(e db.Entity) model.EntityInfo {
	info := model.EntityInfo{
		ID:             e.ID,
		Name:           e.Name,
		Bucket:         e.Bucket,
		Kind:           model.ResourceKind(e.Kind),
		IsNotExist:     e.IsNotExist,
		PublicationURL: e.PublicationURL,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.Format(time.RFC3339),
	}
	if e.FolderID != nil {
		info.FolderID = *e.FolderID
	}
	return info
}
