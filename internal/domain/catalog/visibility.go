package catalog

import "time"

type VisibilityState string

const (
	VisibilityPublic       VisibilityState = "public"
	VisibilityWithheldDMCA VisibilityState = "withheld_dmca"
)

// Withholding is the takedown record attached to a withheld source or
// revision. Restoring visibility removes the record entirely, so a restored
// entity is indistinguishable from one that was never withheld.
type Withholding struct {
	CaseID string    `json:"case_id"`
	Reason string    `json:"reason,omitempty"`
	By     string    `json:"by,omitempty"`
	At     time.Time `json:"at"`
}

type VisibilityScope string

const (
	ScopeSource   VisibilityScope = "source"
	ScopeRevision VisibilityScope = "revision"
)
