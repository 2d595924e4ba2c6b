package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pubhub/internal/db"
	"pubhub/internal/foldertree"
	"pubhub/internal/ident"
	"pubhub/internal/mapper"
	"pubhub/internal/model"
	"pubhub/internal/review"
	"pubhub/internal/rules"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// MaxFolderDepth is the deepest nesting a publish destination plus its
// re-rooted contents may produce in the public tree.
const MaxFolderDepth = 4

// ErrInvalidEntities is wrapped into the approval error when resources
// vanished mid-review. The message is what reviewers see verbatim.
var ErrInvalidEntities = errors.New("some resources have already been unpublished or deleted and cannot be approved")

// ErrReviewIncomplete blocks approval while unreviewed stops remain.
var ErrReviewIncomplete = errors.New("review is not finished")

// ErrPublicationClosed is returned for transitions on a terminal publication.
var ErrPublicationClosed = errors.New("publication is already approved or rejected")

type PublicationService struct {
	queries   *db.Queries
	entitySvc *EntityService
	bus       EventBus
	jobClient JobClient
	log       *zap.Logger
}

type EventBus interface {
	PublishBucket(bucket string, event map[string]interface{}) error
	PublishPublication(publicationURL string, event map[string]interface{}) error
	PublishReviewers(event map[string]interface{}) error
}

func NewPublicationService(queries *db.Queries, entitySvc *EntityService, bus EventBus, log *zap.Logger) *PublicationService {
	return &PublicationService{
		queries:   queries,
		entitySvc: entitySvc,
		bus:       bus,
		log:       log,
	}
}

// SetJobClient sets the job client for scheduling background jobs
func (s *PublicationService) SetJobClient(client JobClient) {
	s.jobClient = client
}

type PublishInput struct {
	Name         string                  `json:"name"`
	TargetFolder string                  `json:"targetFolder"`
	EntityIDs    []string                `json:"entityIds,omitempty"`
	FolderIDs    []string                `json:"folderIds,omitempty"`
	Links        []mapper.AttachmentLink `json:"links,omitempty"`
	Rules        []model.PublicationRule `json:"rules,omitempty"`
	CreatedBy    string                  `json:"-"`
	Bucket       string                  `json:"-"`
}

// Publish creates a PENDING publication from a selection of entities and
// folders. Resources are resolved against the live listing at call time;
// nothing in the public tree changes until approval.
func (s *PublicationService) Publish(ctx context.Context, input PublishInput) (*model.Publication, error) {
	return s.createPublication(ctx, input, model.ActionAdd)
}

// Unpublish creates a PENDING removal request with the same wire shape.
// The selected ids are interpreted as public-tree locations to delete.
func (s *PublicationService) Unpublish(ctx context.Context, input PublishInput) (*model.Publication, error) {
	return s.createPublication(ctx, input, model.ActionDelete)
}

func (s *PublicationService) createPublication(ctx context.Context, input PublishInput, action model.PublishAction) (*model.Publication, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("publication name is required")
	}
	if len(input.EntityIDs) == 0 && len(input.FolderIDs) == 0 {
		return nil, fmt.Errorf("publication selection is empty")
	}

	build := mapper.BuildInput{
		DestPath: input.TargetFolder,
		Action:   action,
		Links:    input.Links,
	}

	for _, id := range input.EntityIDs {
		row, err := s.queries.GetEntityByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve entity %s: %w", id, err)
		}
		e := dbEntityToModel(row)
		// Files selected on a publish also serve as the upload set that
		// conversation attachment links are matched against.
		if action == model.ActionAdd && e.Kind == model.KindFile {
			build.Uploads = append(build.Uploads, e)
		}
		build.Entities = append(build.Entities, e)
	}

	for _, folderID := range input.FolderIDs {
		items, err := s.entitySvc.FolderContents(ctx, folderID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve folder %s: %w", folderID, err)
		}
		build.Folders = append(build.Folders, mapper.FolderSelection{ID: folderID, Items: items})
	}

	resources := mapper.BuildResources(build)
	if len(resources) == 0 {
		return nil, fmt.Errorf("selection maps to no publishable resources")
	}

	if action == model.ActionAdd {
		if err := s.checkTargetDepth(resources); err != nil {
			return nil, err
		}
	}

	url := "publications/" + input.Bucket + "/" + ulid.Make().String()
	resourceTypes := mapper.ResourceTypes(resources)

	params := db.CreatePublicationParams{
		URL:           url,
		Name:          input.Name,
		TargetFolder:  input.TargetFolder,
		Status:        string(model.StatusPending),
		CreatedBy:     input.CreatedBy,
		ResourceTypes: backendTypeStrings(resourceTypes),
	}
	for _, r := range resources {
		res := db.PublicationResource{
			PublicationURL: url,
			TargetURL:      r.TargetURL,
			ReviewURL:      r.ReviewURL,
			Action:         string(r.Action),
		}
		if r.SourceURL != "" {
			src := r.SourceURL
			res.SourceURL = &src
		}
		params.Resources = append(params.Resources, res)
	}
	for _, r := range input.Rules {
		params.Rules = append(params.Rules, db.PublicationRule{
			PublicationURL: url,
			Source:         r.Source,
			Function:       string(r.Function),
			Targets:        r.Targets,
		})
	}

	row, err := s.queries.CreatePublication(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create publication: %w", err)
	}

	pub := s.assemblePublication(row, resources, input.Rules)

	_ = s.bus.PublishBucket(input.Bucket, map[string]interface{}{
		"type":           "publication.created",
		"publicationUrl": url,
		"name":           input.Name,
	})
	_ = s.bus.PublishReviewers(map[string]interface{}{
		"type":           "publication.pending",
		"publicationUrl": url,
		"name":           input.Name,
		"resourceTypes":  backendTypeStrings(resourceTypes),
	})

	if s.jobClient != nil {
		if err := s.jobClient.ScheduleReviewerReminder(url, 24*time.Hour); err != nil {
			s.log.Warn("Failed to schedule reviewer reminder", zap.String("publicationUrl", url), zap.Error(err))
		}
		if err := s.jobClient.ScheduleReconcile(url, time.Hour); err != nil {
			s.log.Warn("Failed to schedule reconcile", zap.String("publicationUrl", url), zap.Error(err))
		}
	}

	return &pub, nil
}

// checkTargetDepth rejects publish requests whose re-rooted targets would
// nest deeper than MaxFolderDepth in the public tree.
func (s *PublicationService) checkTargetDepth(resources []model.PublicationResource) error {
	ids := make([]string, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.TargetURL)
	}
	folders := foldertree.FoldersFromIDs(ids, model.KindConversation)
	for _, f := range folders {
		if d := foldertree.Depth(f, folders); d > MaxFolderDepth {
			return fmt.Errorf("destination exceeds maximum folder depth %d", MaxFolderDepth)
		}
	}
	return nil
}

// Approve applies a publication to the public tree. The status update is
// the gate: a publication already terminal fails before any resource is
// touched, and no resource is applied before the review gate passes.
func (s *PublicationService) Approve(ctx context.Context, url, reviewer string) error {
	pub, err := s.Get(ctx, url)
	if err != nil {
		return err
	}
	if pub.Status.Terminal() {
		return ErrPublicationClosed
	}

	missing, err := s.MissingReviewURLs(ctx, pub.Publication)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidEntities, strings.Join(sortedKeys(missing), ", "))
	}

	stored, err := s.queries.ListResourcesToReview(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to load review records: %w", err)
	}
	reviewed := make(map[string]bool, len(stored))
	for _, r := range stored {
		if r.Reviewed {
			reviewed[r.ReviewURL] = true
		}
	}
	for _, r := range review.SeedRecords(pub.Publication, missing) {
		if !reviewed[r.ReviewURL] {
			return ErrReviewIncomplete
		}
	}

	if err := s.queries.UpdatePublicationStatus(ctx, url, string(model.StatusApproved)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPublicationClosed
		}
		return fmt.Errorf("failed to update publication status: %w", err)
	}

	if err := s.applyResources(ctx, pub.Publication); err != nil {
		return err
	}

	if err := s.applyRules(ctx, pub.Publication); err != nil {
		return err
	}

	if err := s.queries.DeleteResourcesToReview(ctx, url); err != nil {
		s.log.Warn("Failed to clear review records", zap.String("publicationUrl", url), zap.Error(err))
	}

	event := map[string]interface{}{
		"type":           "publication.approved",
		"publicationUrl": url,
		"reviewedBy":     reviewer,
	}
	_ = s.bus.PublishPublication(url, event)
	_ = s.bus.PublishBucket(bucketOf(url), event)
	_ = s.bus.PublishReviewers(event)

	return nil
}

// Reject closes a publication without touching the public tree.
func (s *PublicationService) Reject(ctx context.Context, url, reviewer string) error {
	if err := s.queries.UpdatePublicationStatus(ctx, url, string(model.StatusRejected)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPublicationClosed
		}
		return fmt.Errorf("failed to update publication status: %w", err)
	}

	if err := s.queries.DeleteResourcesToReview(ctx, url); err != nil {
		s.log.Warn("Failed to clear review records", zap.String("publicationUrl", url), zap.Error(err))
	}

	event := map[string]interface{}{
		"type":           "publication.rejected",
		"publicationUrl": url,
		"reviewedBy":     reviewer,
	}
	_ = s.bus.PublishPublication(url, event)
	_ = s.bus.PublishBucket(bucketOf(url), event)
	_ = s.bus.PublishReviewers(event)

	return nil
}

func (s *PublicationService) applyResources(ctx context.Context, pub model.Publication) error {
	for _, r := range pub.Resources {
		switch r.Action {
		case model.ActionDelete:
			if err := s.queries.DeleteEntity(ctx, r.TargetURL); err != nil {
				return fmt.Errorf("failed to delete %s: %w", r.TargetURL, err)
			}
		default:
			parts := ident.Split(r.TargetURL)
			entity := db.Entity{
				ID:     r.TargetURL,
				Kind:   parts.APIKey,
				Name:   parts.Name,
				Bucket: parts.Bucket,
			}
			if parts.ParentPath != "" {
				folderID := ident.ConstructPath(parts.APIKey, parts.Bucket, parts.ParentPath)
				entity.FolderID = &folderID
			}
			pubURL := pub.URL
			entity.PublicationURL = &pubURL
			if _, err := s.queries.UpsertEntity(ctx, entity); err != nil {
				return fmt.Errorf("failed to apply %s: %w", r.TargetURL, err)
			}
		}
	}
	return nil
}

// applyRules replaces the rule set in force at the target path. Removal
// requests leave rules alone.
func (s *PublicationService) applyRules(ctx context.Context, pub model.Publication) error {
	for _, r := range pub.Resources {
		if r.Action == model.ActionDelete {
			return nil
		}
	}

	records := make([]db.RuleRecord, 0, len(pub.Rules))
	for _, r := range pub.Rules {
		records = append(records, db.RuleRecord{
			Path:     pub.TargetFolder,
			Source:   r.Source,
			Function: string(r.Function),
			Targets:  r.Targets,
		})
	}
	if err := s.queries.ReplaceRuleRecords(ctx, pub.TargetFolder, records); err != nil {
		return fmt.Errorf("failed to replace rules at %s: %w", pub.TargetFolder, err)
	}
	return nil
}

// PublicationDetail is the on-demand view of one publication.
type PublicationDetail struct {
	model.Publication
	ReviewState  review.SessionState `json:"reviewState"`
	RulesChanged bool                `json:"rulesChanged"`
}

// Get assembles a publication with its resources, rules, derived review
// state and the rules-changed indicator against the rules currently in
// force at its target path.
func (s *PublicationService) Get(ctx context.Context, url string) (*PublicationDetail, error) {
	row, err := s.queries.GetPublicationByURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get publication: %w", err)
	}

	dbResources, err := s.queries.GetPublicationResources(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get publication resources: %w", err)
	}
	resources := make([]model.PublicationResource, 0, len(dbResources))
	for _, r := range dbResources {
		res := model.PublicationResource{
			TargetURL: r.TargetURL,
			ReviewURL: r.ReviewURL,
			Action:    model.PublishAction(r.Action),
		}
		if r.SourceURL != nil {
			res.SourceURL = *r.SourceURL
		}
		resources = append(resources, res)
	}

	dbRules, err := s.queries.GetPublicationRules(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get publication rules: %w", err)
	}
	pubRules := make([]model.PublicationRule, 0, len(dbRules))
	for _, r := range dbRules {
		pubRules = append(pubRules, model.PublicationRule{
			Source:   r.Source,
			Function: model.RuleFunction(r.Function),
			Targets:  r.Targets,
		})
	}

	pub := s.assemblePublication(row, resources, pubRules)

	records, err := s.queries.ListResourcesToReview(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to load review records: %w", err)
	}
	reviewRecords := make([]model.ResourceToReview, 0, len(records))
	for _, r := range records {
		reviewRecords = append(reviewRecords, model.ResourceToReview{
			ReviewURL:      r.ReviewURL,
			PublicationURL: r.PublicationURL,
			Reviewed:       r.Reviewed,
		})
	}

	missing, err := s.MissingReviewURLs(ctx, pub)
	if err != nil {
		return nil, err
	}

	inForce, err := s.rulesInForce(ctx, pub.TargetFolder)
	if err != nil {
		return nil, err
	}

	return &PublicationDetail{
		Publication:  pub,
		ReviewState:  review.State(reviewRecords, len(missing) > 0),
		RulesChanged: !rules.Equal(inForce, pubRules),
	}, nil
}

// List returns publications, optionally narrowed by status and by
// resource type overlap.
func (s *PublicationService) List(ctx context.Context, status *model.PublicationStatus, resourceTypes []model.BackendResourceType) ([]model.Publication, error) {
	var statusStr *string
	if status != nil {
		v := string(*status)
		statusStr = &v
	}

	rows, err := s.queries.ListPublications(ctx, statusStr)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}

	wanted := make(map[string]bool, len(resourceTypes))
	for _, t := range resourceTypes {
		wanted[string(t)] = true
	}

	pubs := make([]model.Publication, 0, len(rows))
	for _, row := range rows {
		if len(wanted) > 0 && !overlaps(row.ResourceTypes, wanted) {
			continue
		}
		pubs = append(pubs, s.assemblePublication(row, nil, nil))
	}
	return pubs, nil
}

// RulesAt returns every rule record governing a target publish path,
// grouped by the ancestor path each record is attached to.
func (s *PublicationService) RulesAt(ctx context.Context, path string) (map[string][]model.PublicationRule, error) {
	records, err := s.queries.ListRuleRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule records: %w", err)
	}

	byPath := map[string][]model.PublicationRule{}
	for _, r := range records {
		byPath[r.Path] = append(byPath[r.Path], model.PublicationRule{
			Source:   r.Source,
			Function: model.RuleFunction(r.Function),
			Targets:  r.Targets,
		})
	}
	return rules.ByPath(path, byPath), nil
}

// MissingReviewURLs finds review urls whose backing entity no longer
// exists or is flagged missing. PENDING publications carry them as
// invalid entities; they block approval and are excluded from seeding.
func (s *PublicationService) MissingReviewURLs(ctx context.Context, pub model.Publication) (map[string]bool, error) {
	var ids []string
	for _, r := range pub.Resources {
		if r.Action == model.ActionDelete {
			ids = append(ids, r.TargetURL)
			continue
		}
		if r.SourceURL != "" {
			ids = append(ids, r.SourceURL)
		}
	}
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	existing, err := s.queries.ExistingEntityIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to check entities: %w", err)
	}

	missing := map[string]bool{}
	for _, r := range pub.Resources {
		checkID := r.SourceURL
		if r.Action == model.ActionDelete {
			checkID = r.TargetURL
		}
		if checkID != "" && !existing[checkID] {
			missing[r.ReviewURL] = true
		}
	}
	return missing, nil
}

func (s *PublicationService) rulesInForce(ctx context.Context, path string) ([]model.PublicationRule, error) {
	records, err := s.queries.ListRuleRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rule records: %w", err)
	}
	var inForce []model.PublicationRule
	for _, r := range records {
		if r.Path == path {
			inForce = append(inForce, model.PublicationRule{
				Source:   r.Source,
				Function: model.RuleFunction(r.Function),
				Targets:  r.Targets,
			})
		}
	}
	return inForce, nil
}

func (s *PublicationService) assemblePublication(row db.Publication, resources []model.PublicationResource, pubRules []model.PublicationRule) model.Publication {
	types := make([]model.BackendResourceType, 0, len(row.ResourceTypes))
	for _, t := range row.ResourceTypes {
		types = append(types, model.BackendResourceType(t))
	}
	return model.Publication{
		URL:           row.URL,
		Name:          row.Name,
		TargetFolder:  row.TargetFolder,
		Status:        model.PublicationStatus(row.Status),
		CreatedBy:     row.CreatedBy,
		Rules:         pubRules,
		Resources:     resources,
		ResourceTypes: types,
		CreatedAt:     row.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     row.UpdatedAt.Format(time.RFC3339),
	}
}

// bucketOf extracts the owning bucket from a publication url of the form
// publications/<bucket>/<id>.
func bucketOf(publicationURL string) string {
	parts := strings.Split(publicationURL, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[1]
}

func backendTypeStrings(types []model.BackendResourceType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

func overlaps(have []string, wanted map[string]bool) bool {
	for _, t := range have {
		if wanted[t] {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
