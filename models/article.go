package models

import (
	"fmt"
	"time"
)

// ArticleStatus is the moderation state of a submitted article.
type ArticleStatus string

const (
	StatusPending  ArticleStatus = "Pending"
	StatusApproved ArticleStatus = "Approved"
	StatusRejected ArticleStatus = "Rejected"
)

// EvidenceType classifies the kind of study backing an article's claim.
type EvidenceType string

const (
	EvidenceEmpiricalStudy   EvidenceType = "Empirical Study"
	EvidenceCaseStudy        EvidenceType = "Case Study"
	EvidenceExperimental     EvidenceType = "Experimental"
	EvidenceSystematicReview EvidenceType = "Systematic Literature Review"
	EvidenceMetaAnalysis     EvidenceType = "Meta Analysis"
	EvidenceSurvey           EvidenceType = "Survey"
	EvidenceTheoretical      EvidenceType = "Theoretical"
	EvidenceToolEvaluation   EvidenceType = "Tool Evaluation"
)

// ParseEvidenceType validates an evidence label against the closed enum.
func ParseEvidenceType(s string) (EvidenceType, error) {
	switch EvidenceType(s) {
	case EvidenceEmpiricalStudy, EvidenceCaseStudy, EvidenceExperimental,
		EvidenceSystematicReview, EvidenceMetaAnalysis, EvidenceSurvey,
		EvidenceTheoretical, EvidenceToolEvaluation:
		return EvidenceType(s), nil
	default:
		return "", fmt.Errorf("invalid evidence type: %q", s)
	}
}

// Article is a submitted evidence record citing a publication and a claim
// about a software-engineering practice.
type Article struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Human-facing identifier, distinct from the database key. May be
	// auto-generated on submit when left blank.
	CustomID string `json:"customId" gorm:"column:custom_id;uniqueIndex;not null"`

	Title   string `json:"title" gorm:"not null"`
	Authors string `json:"authors" gorm:"not null"` // free text, not normalized
	Source  string `json:"source" gorm:"not null"`
	PubYear string `json:"pubyear" gorm:"column:pubyear;not null"`
	// Indexed but deliberately not unique: a same-DOI submission is stored
	// as a flagged duplicate of the earlier article, not rejected.
	DOI     string `json:"doi" gorm:"column:doi;index;not null"`
	Claim   string `json:"claim" gorm:"type:text;not null"`

	Evidence EvidenceType  `json:"evidence" gorm:"not null"`
	Status   ArticleStatus `json:"status" gorm:"index;default:'Pending'"`

	SubmitterID    string `json:"submitterId,omitempty"`
	SubmitterEmail string `json:"submitterEmail,omitempty"`

	ReviewerID    string `json:"reviewerId,omitempty"`
	ReviewComment string `json:"reviewComment,omitempty" gorm:"type:text"`

	// Duplicate linkage set on submit (DOI heuristic) or by moderator review.
	// DuplicateOf references another article's CustomID, never its own.
	IsDuplicate bool   `json:"isDuplicate" gorm:"default:false"`
	DuplicateOf string `json:"duplicateOf,omitempty"`
}

// TableName sets the explicit table name.
func (Article) TableName() string {
	return "articles"
}
