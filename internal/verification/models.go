package verification

import (
	"time"

	"github.com/google/uuid"
)

// RecordClass identifies one of the three stored verification records a
// subject owns. Each class keeps its sub-record data and its derived overall
// status in a single row.
type RecordClass string

const (
	ClassKYC            RecordClass = "kyc"
	ClassAcademic       RecordClass = "academic"
	ClassWorkExperience RecordClass = "work_experience"
)

// DocumentClass identifies what the caller is submitting. Academic submissions
// target one of three independently verifiable sub-parts, so the document
// class is finer grained than the record class.
type DocumentClass string

const (
	DocKYC             DocumentClass = "kyc"
	DocClass10         DocumentClass = "class10"
	DocClass12         DocumentClass = "class12"
	DocHigherEducation DocumentClass = "higher_education"
	DocWorkExperience  DocumentClass = "work_experience"
)

// RecordClass returns the stored record class a document class writes into.
func (d DocumentClass) RecordClass() RecordClass {
	switch d {
	case DocKYC:
		return ClassKYC
	case DocWorkExperience:
		return ClassWorkExperience
	default:
		return ClassAcademic
	}
}

// KycStatus is the lifecycle of a subject's identity verification.
type KycStatus string

const (
	KycPending      KycStatus = "pending"
	KycVerified     KycStatus = "verified"
	KycRejected     KycStatus = "rejected"
	KycManualReview KycStatus = "manual_review"
)

// Valid reports whether the value is one of the defined statuses. The guard
// treats anything else as a fatal invariant violation rather than a denial.
func (s KycStatus) Valid() bool {
	switch s {
	case KycPending, KycVerified, KycRejected, KycManualReview:
		return true
	}
	return false
}

// OverallStatus is the aggregate lifecycle value recomputed from a record's
// sub-parts after every write. Downstream consumers (loan matching,
// dashboards) depend on it being consistent with the stored sub-parts.
type OverallStatus string

const (
	OverallPending      OverallStatus = "pending"
	OverallPartial      OverallStatus = "partial"
	OverallComplete     OverallStatus = "complete"
	OverallManualReview OverallStatus = "manual_review"
)

// KycData holds the identity fields normalized out of the extraction
// service's KYC response.
type KycData struct {
	FullName      string `json:"full_name"`
	DateOfBirth   string `json:"date_of_birth,omitempty"`
	AadhaarNumber string `json:"aadhaar_number,omitempty"`
	PanNumber     string `json:"pan_number,omitempty"`
	Address       string `json:"address,omitempty"`
	FatherName    string `json:"father_name,omitempty"`
}

// KycRecord is the singleton identity record for a subject. Once the status
// reaches verified or manual_review no further submission is accepted;
// rejected records may be resubmitted.
type KycRecord struct {
	Status     KycStatus  `json:"status"`
	Data       KycData    `json:"data"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
}

// Marksheet is one extracted marksheet for a school section or degree.
type Marksheet struct {
	Board         string  `json:"board,omitempty"`
	InstitutionID string  `json:"institution_id,omitempty"`
	School        string  `json:"school,omitempty"`
	YearOfPassing int     `json:"year_of_passing"`
	Percentage    float64 `json:"percentage,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// SchoolSection is the class10 or class12 sub-part of an academic record.
type SchoolSection struct {
	Marksheets []Marksheet `json:"marksheets"`
	IsVerified bool        `json:"is_verified"`
	VerifiedAt *time.Time  `json:"verified_at,omitempty"`
}

// HigherEducationEntry is one degree or diploma in the append-only higher
// education list.
type HigherEducationEntry struct {
	EducationType  string      `json:"education_type"`
	Institution    string      `json:"institution,omitempty"`
	CourseName     string      `json:"course_name"`
	Specialization string      `json:"specialization,omitempty"`
	StartYear      int         `json:"start_year,omitempty"`
	EndYear        int         `json:"end_year,omitempty"`
	Score          float64     `json:"score,omitempty"`
	Marksheets     []Marksheet `json:"marksheets,omitempty"`
	IsVerified     bool        `json:"is_verified"`
	Confidence     float64     `json:"confidence"`
}

// AcademicRecord is the singleton academic record for a subject. class10 and
// class12 are created at most once each; higherEducation grows append-only.
type AcademicRecord struct {
	Class10         *SchoolSection         `json:"class10,omitempty"`
	Class12         *SchoolSection         `json:"class12,omitempty"`
	HigherEducation []HigherEducationEntry `json:"higher_education,omitempty"`
}

// EmploymentType classifies a work experience entry. Upstream frequently
// omits it; full_time is the documented default.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentInternship EmploymentType = "internship"
)

// Experience is one extracted work experience entry. Entries are append-only
// per submission batch.
type Experience struct {
	CompanyName    string         `json:"company_name"`
	JobTitle       string         `json:"job_title"`
	StartDate      string         `json:"start_date,omitempty"` // YYYY-MM
	EndDate        string         `json:"end_date,omitempty"`   // YYYY-MM, empty when current
	IsCurrent      bool           `json:"is_current"`
	EmploymentType EmploymentType `json:"employment_type"`
	IsPaid         bool           `json:"is_paid"`
	Verified       bool           `json:"verified"`
	Confidence     float64        `json:"confidence"`
}

// WorkExperienceRecord is the singleton work history record for a subject.
// isFresher=true forces an empty experience list and a complete status.
type WorkExperienceRecord struct {
	IsFresher            bool         `json:"is_fresher"`
	Experiences          []Experience `json:"experiences"`
	TotalExperienceYears float64      `json:"total_experience_years"`
}

// SubjectState is the full persisted verification state for one subject, as
// read at the start of a pipeline invocation. Versions carry the optimistic
// concurrency tokens for each record row; a missing record has version 0.
type SubjectState struct {
	SubjectID uuid.UUID

	Kyc      *KycRecord
	Academic *AcademicRecord
	Work     *WorkExperienceRecord

	Versions map[RecordClass]int64
	Statuses map[RecordClass]OverallStatus
}

// Version returns the stored row version for a record class, zero when the
// record does not exist yet.
func (s *SubjectState) Version(class RecordClass) int64 {
	if s.Versions == nil {
		return 0
	}
	return s.Versions[class]
}

// StatusView is the dashboard-facing aggregate across all record classes.
type StatusView struct {
	SubjectID      uuid.UUID                     `json:"subject_id"`
	KycStatus      KycStatus                     `json:"kyc_status"`
	OverallByClass map[RecordClass]OverallStatus `json:"overall_by_class"`
}
