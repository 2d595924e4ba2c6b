package model

// ResourceKind identifies what a resource identifier points at.
// It is resolved once when an identifier enters the system; downstream
// code switches on the kind instead of re-inspecting id prefixes.
type ResourceKind string

const (
	KindConversation ResourceKind = "conversations"
	KindPrompt       ResourceKind = "prompts"
	KindFile         ResourceKind = "files"
	KindApplication  ResourceKind = "applications"
)

// BackendResourceType is the wire name for a resource kind
type BackendResourceType string

const (
	TypeConversation BackendResourceType = "CONVERSATION"
	TypePrompt       BackendResourceType = "PROMPT"
	TypeFile         BackendResourceType = "FILE"
	TypeApplication  BackendResourceType = "APPLICATION"
)

// BackendType maps a kind to its wire name. Unknown kinds map to "".
func (k ResourceKind) BackendType() BackendResourceType {
	switch k {
	case KindConversation:
		return TypeConversation
	case KindPrompt:
		return TypePrompt
	case KindFile:
		return TypeFile
	case KindApplication:
		return TypeApplication
	}
	return ""
}

// KindOf resolves the kind from an identifier's apiKey segment.
func KindOf(apiKey string) (ResourceKind, bool) {
	switch ResourceKind(apiKey) {
	case KindConversation, KindPrompt, KindFile, KindApplication:
		return ResourceKind(apiKey), true
	}
	return "", false
}

// PublicationStatus represents publication lifecycle status
type PublicationStatus string

const (
	StatusPending  PublicationStatus = "PENDING"
	StatusApproved PublicationStatus = "APPROVED"
	StatusRejected PublicationStatus = "REJECTED"
)

// Terminal reports whether a publication can no longer change
func (s PublicationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// PublishAction says whether a publication adds resources to the public
// tree or removes them (unpublish)
type PublishAction string

const (
	ActionAdd    PublishAction = "ADD"
	ActionDelete PublishAction = "DELETE"
)

// FolderNode is one node of the derived folder tree. The tree has no
// stored parent/child pointers; it is recomputed from flat id lists.
type FolderNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	FolderID string       `json:"folderId"`
	Kind     ResourceKind `json:"kind"`
}

// EntityInfo is the read-only view of an externally owned resource
// (conversation, prompt, file or application). The lifecycle controller
// only ever writes the two flag fields.
type EntityInfo struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Bucket         string       `json:"bucket"`
	FolderID       string       `json:"folderId,omitempty"`
	Kind           ResourceKind `json:"kind"`
	IsNotExist     bool         `json:"isNotExist,omitempty"`
	PublicationURL *string      `json:"publicationUrl,omitempty"`
	CreatedAt      string       `json:"createdAt,omitempty"`
	UpdatedAt      string       `json:"updatedAt,omitempty"`
}

// PublicationResource maps one resource from its origin to its target
// location in the public tree. SourceURL is empty for DELETE resources.
type PublicationResource struct {
	SourceURL string        `json:"sourceUrl,omitempty"`
	TargetURL string        `json:"targetUrl"`
	ReviewURL string        `json:"reviewUrl"`
	Action    PublishAction `json:"action"`
}

// NewResourceReviewedAtSource builds a resource for a freshly created
// PENDING request: the target does not exist yet, so reviewers are sent
// to the author's original item.
func NewResourceReviewedAtSource(sourceURL, targetURL string, action PublishAction) PublicationResource {
	return PublicationResource{
		SourceURL: sourceURL,
		TargetURL: targetURL,
		ReviewURL: sourceURL,
		Action:    action,
	}
}

// NewResourceReviewedAtTarget builds a resource for an update to an
// already-public item: reviewers inspect the existing public copy.
func NewResourceReviewedAtTarget(sourceURL, targetURL string, action PublishAction) PublicationResource {
	return PublicationResource{
		SourceURL: sourceURL,
		TargetURL: targetURL,
		ReviewURL: targetURL,
		Action:    action,
	}
}

// RuleFunction is the comparison applied by one audience-filter clause
type RuleFunction string

const (
	FuncTrue    RuleFunction = "TRUE"
	FuncFalse   RuleFunction = "FALSE"
	FuncEqual   RuleFunction = "EQUAL"
	FuncContain RuleFunction = "CONTAIN"
	FuncRegex   RuleFunction = "REGEX"
)

// PublicationRule is one audience-filter clause. Distinct sources are
// ANDed together; targets within one rule are ORed. Evaluation happens
// server side; this service only authors, inherits and diffs rules.
type PublicationRule struct {
	Source   string       `json:"source"`
	Function RuleFunction `json:"function"`
	Targets  []string     `json:"targets"`
}

// Publication is one publish/unpublish request moving through the
// approval workflow. Immutable once Status is terminal.
type Publication struct {
	URL           string                `json:"url"`
	Name          string                `json:"name"`
	TargetFolder  string                `json:"targetFolder"`
	Status        PublicationStatus     `json:"status"`
	CreatedBy     string                `json:"createdBy"`
	Rules         []PublicationRule     `json:"rules,omitempty"`
	Resources     []PublicationResource `json:"resources"`
	ResourceTypes []BackendResourceType `json:"resourceTypes"`
	CreatedAt     string                `json:"createdAt,omitempty"`
	UpdatedAt     string                `json:"updatedAt,omitempty"`
}

// ResourceToReview tracks one reviewer stop inside one publication.
// Exactly one record exists per (ReviewURL, PublicationURL) pair.
// Reviewed is sticky: it flips to true once and never back.
type ResourceToReview struct {
	ReviewURL      string `json:"reviewUrl"`
	PublicationURL string `json:"publicationUrl"`
	Reviewed       bool   `json:"reviewed"`
}
