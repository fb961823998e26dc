package models

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	id "onboarding/pkg/domain"
	dErrors "onboarding/pkg/domain-errors"
)

// Stage is the position of a session in the onboarding workflow.
type Stage string

const (
	StageCreated           Stage = "created"
	StageDocumentsVerified Stage = "documents_verified"
	StageFaceVerified      Stage = "face_verified"
	StageRegistered        Stage = "registered"
	StageFailed            Stage = "failed"
	StageExpired           Stage = "expired"
)

var stageRank = map[Stage]int{
	StageCreated:           0,
	StageDocumentsVerified: 1,
	StageFaceVerified:      2,
	StageRegistered:        3,
}

// Rank orders the forward path. Failed and expired sessions rank -1.
func (s Stage) Rank() int {
	if r, ok := stageRank[s]; ok {
		return r
	}
	return -1
}

// IsTerminal reports whether no further transition is possible.
func (s Stage) IsTerminal() bool {
	return s == StageRegistered || s == StageFailed || s == StageExpired
}

func (s Stage) IsValid() bool {
	switch s {
	case StageCreated, StageDocumentsVerified, StageFaceVerified, StageRegistered, StageFailed, StageExpired:
		return true
	}
	return false
}

// Biometric records the accepted selfie and its match against the document photo.
type Biometric struct {
	SelfieImageKey string  `json:"selfie_image_key"`
	MatchScore     float64 `json:"match_score"`
	Matched        bool    `json:"matched"`
}

// Session is one onboarding attempt. DocumentImageKeys never change once the
// session exists; Decision is written once, at registration.
type Session struct {
	ID                id.SessionID       `json:"id"`
	Stage             Stage              `json:"stage"`
	UserID            id.UserID          `json:"user_id"`
	Document          *ExtractedDocument `json:"document,omitempty"`
	DocumentImageKeys []string           `json:"document_image_keys"`
	Biometric         *Biometric         `json:"biometric,omitempty"`
	SelfieAttempts    int                `json:"selfie_attempts"`
	Decision          *RiskDecision      `json:"decision,omitempty"`
	FinalizingUntil   time.Time          `json:"finalizing_until,omitzero"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	ExpiresAt         time.Time          `json:"expires_at"`
}

// IsExpired reports whether the session outlived its TTL at now.
func (s *Session) IsExpired(now time.Time) bool {
	return s.Stage == StageExpired || (!s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt))
}

// IsFinalizing reports whether a registration currently holds the session.
func (s *Session) IsFinalizing(now time.Time) bool {
	return !s.FinalizingUntil.IsZero() && now.Before(s.FinalizingUntil)
}

// Validate checks the structural invariants that must hold after every mutation.
func (s *Session) Validate() error {
	if s.ID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "session id required")
	}
	if !s.Stage.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown stage %q", s.Stage)
	}
	if s.Stage.Rank() >= StageDocumentsVerified.Rank() && s.Document == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "verified session without document")
	}
	if len(s.DocumentImageKeys) > 0 && s.Document == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "document images without extracted document")
	}
	if s.Biometric != nil {
		if s.Document == nil {
			return dErrors.New(dErrors.CodeInvariantViolation, "biometric without document")
		}
		if s.Stage.Rank() >= 0 && s.Stage.Rank() < StageFaceVerified.Rank() {
			return dErrors.New(dErrors.CodeInvariantViolation, "biometric before face verification")
		}
	}
	if s.Stage == StageFaceVerified || s.Stage == StageRegistered {
		if s.Biometric == nil || !s.Biometric.Matched {
			return dErrors.Newf(dErrors.CodeInvariantViolation, "%s session without matched biometric", s.Stage)
		}
	}
	if s.Stage == StageRegistered && s.Decision == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "registered session without decision")
	}
	return nil
}

// DocumentType enumerates the identity documents the extractor recognises.
type DocumentType string

const (
	DocumentPassport         DocumentType = "passport"
	DocumentNationalID       DocumentType = "national_id"
	DocumentDriverLicense    DocumentType = "driver_license"
	DocumentBirthCertificate DocumentType = "birth_certificate"
)

func ParseDocumentType(s string) (DocumentType, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	switch DocumentType(normalized) {
	case DocumentPassport, DocumentNationalID, DocumentDriverLicense, DocumentBirthCertificate:
		return DocumentType(normalized), nil
	case "id_card", "national_id_card":
		return DocumentNationalID, nil
	case "drivers_license", "driving_license":
		return DocumentDriverLicense, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unsupported document type %q", s)
}

type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// ExtractedDocument is the structured result of reading identity document images.
type ExtractedDocument struct {
	FullName       string       `json:"full_name"`
	DateOfBirth    string       `json:"date_of_birth"`
	DocumentType   DocumentType `json:"document_type"`
	DocumentNumber string       `json:"document_number"`
	IssueDate      string       `json:"issue_date"`
	ExpiryDate     string       `json:"expiry_date"`

	Nationality        string  `json:"nationality,omitempty"`
	Gender             string  `json:"gender,omitempty"`
	IDNumber           string  `json:"id_number,omitempty"`
	PlaceOfBirth       string  `json:"place_of_birth,omitempty"`
	Address            Address `json:"address"`
	FatherName         string  `json:"father_name,omitempty"`
	MotherName         string  `json:"mother_name,omitempty"`
	RegistrationNumber string  `json:"registration_number,omitempty"`

	Confidence float64 `json:"confidence"`
}

// MissingRequired returns the json names of required fields that are blank.
func (d *ExtractedDocument) MissingRequired() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("full_name", d.FullName)
	check("date_of_birth", d.DateOfBirth)
	check("document_type", string(d.DocumentType))
	check("document_number", d.DocumentNumber)
	check("issue_date", d.IssueDate)
	check("expiry_date", d.ExpiryDate)
	return missing
}

func (d *ExtractedDocument) Validate() error {
	if missing := d.MissingRequired(); len(missing) > 0 {
		return dErrors.WithReasons(dErrors.CodeValidation,
			fmt.Sprintf("document is missing required fields: %s", strings.Join(missing, ", ")),
			missing)
	}
	if _, err := ParseDocumentType(string(d.DocumentType)); err != nil {
		return err
	}
	return nil
}

// SplitName returns first and last name from FullName. Single-token names
// yield an empty last name.
func (d *ExtractedDocument) SplitName() (first, last string) {
	parts := strings.Fields(d.FullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

// MatchResult is the outcome of comparing two face images.
type MatchResult struct {
	Matched   bool    `json:"matched"`
	Score     float64 `json:"score"`
	SourceKey string  `json:"source_key"`
	TargetKey string  `json:"target_key"`
}

// RiskDecision is computed once at the face-verified to registered boundary.
type RiskDecision struct {
	Approved             bool      `json:"approved"`
	Reasons              []string  `json:"reasons,omitempty"`
	ExtractionConfidence float64   `json:"extraction_confidence"`
	MatchScore           float64   `json:"match_score"`
	EvaluatedAt          time.Time `json:"evaluated_at"`
}

// UserProfile is the customer-supplied data collected at registration.
type UserProfile struct {
	Email         string
	Phone         string
	FirstName     string
	LastName      string
	AcceptedTerms bool
}

var phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)

func (p *UserProfile) Validate() error {
	p.Email = strings.TrimSpace(p.Email)
	p.Phone = strings.Join(strings.Fields(p.Phone), "")
	p.FirstName = strings.TrimSpace(p.FirstName)
	p.LastName = strings.TrimSpace(p.LastName)

	if p.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if len(p.Email) > 254 {
		return dErrors.New(dErrors.CodeValidation, "email must be at most 254 characters")
	}
	addr, err := mail.ParseAddress(p.Email)
	if err != nil || addr.Address != p.Email {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	if p.Phone != "" && !phonePattern.MatchString(p.Phone) {
		return dErrors.New(dErrors.CodeValidation, "phone must be in international format")
	}
	if len(p.FirstName) > 100 || len(p.LastName) > 100 {
		return dErrors.New(dErrors.CodeValidation, "names must be at most 100 characters")
	}
	if !p.AcceptedTerms {
		return dErrors.New(dErrors.CodeValidation, "terms must be accepted")
	}
	return nil
}

// Blob is an uploaded image with its sniffed content type.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Status is the read model of a session.
type Status struct {
	SessionID      id.SessionID       `json:"session_id"`
	Stage          Stage              `json:"stage"`
	Document       *ExtractedDocument `json:"document,omitempty"`
	HasSelfie      bool               `json:"has_selfie"`
	MatchScore     *float64           `json:"match_score,omitempty"`
	SelfieAttempts int                `json:"selfie_attempts"`
	ExpiresAt      time.Time          `json:"expires_at"`
}

// NewStatus projects a session into its read model.
func NewStatus(s *Session) *Status {
	st := &Status{
		SessionID:      s.ID,
		Stage:          s.Stage,
		Document:       s.Document,
		SelfieAttempts: s.SelfieAttempts,
		ExpiresAt:      s.ExpiresAt,
	}
	if s.Biometric != nil {
		st.HasSelfie = true
		score := s.Biometric.MatchScore
		st.MatchScore = &score
	}
	return st
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Document != nil {
		d := *s.Document
		c.Document = &d
	}
	c.DocumentImageKeys = append([]string(nil), s.DocumentImageKeys...)
	if s.Biometric != nil {
		b := *s.Biometric
		c.Biometric = &b
	}
	if s.Decision != nil {
		d := *s.Decision
		d.Reasons = append([]string(nil), s.Decision.Reasons...)
		c.Decision = &d
	}
	return &c
}
