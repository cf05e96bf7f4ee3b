package extraction

import (
	"encoding/json"
	"time"
)

// File is one document handed to the gateway. Submissions are bounded at
// 10 MB per file, so buffering the content is acceptable and keeps multipart
// encoding and archival from fighting over a single reader.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// KYCResult is the upstream response of POST /api/kyc/process. The upstream
// decides verified/rejected/manual_review itself; the pipeline persists the
// reported status as-is.
type KYCResult struct {
	Status     string     `json:"kycStatus"`
	Data       KYCFields  `json:"kycData"`
	VerifiedAt *time.Time `json:"kycVerifiedAt,omitempty"`
	RejectedAt *time.Time `json:"kycRejectedAt,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// KYCFields is the raw identity payload inside a KYC result.
type KYCFields struct {
	FullName      string `json:"full_name"`
	DateOfBirth   string `json:"date_of_birth"`
	AadhaarNumber string `json:"aadhaar_number"`
	PanNumber     string `json:"pan_number"`
	Address       string `json:"address"`
	FatherName    string `json:"father_name"`
}

// MarksheetEntry is one extracted marksheet inside a class10/class12 payload.
type MarksheetEntry struct {
	Board         string   `json:"board"`
	SchoolName    string   `json:"school_name"`
	YearOfPassing int      `json:"year_of_passing"`
	Percentage    float64  `json:"percentage"`
	Confidence    *float64 `json:"confidence,omitempty"`
}

// MarksheetPayload is the per-class payload shape for school marksheets.
type MarksheetPayload struct {
	Marksheets []MarksheetEntry `json:"marksheets"`
}

// DegreeEntry is one detected degree/diploma in a higher education payload.
type DegreeEntry struct {
	EducationType  string   `json:"education_type"`
	Institution    string   `json:"institution"`
	CourseName     string   `json:"course_name"`
	Specialization string   `json:"specialization"`
	StartYear      int      `json:"start_year"`
	EndYear        int      `json:"end_year"`
	Score          float64  `json:"score"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

// HigherEducationPayload is the payload shape for graduation documents.
type HigherEducationPayload struct {
	Degrees []DegreeEntry `json:"degrees"`
}

// WorkExperienceEntry is one detected employment stint. Optional fields are
// pointers so the transformer can distinguish "absent" from zero values when
// applying documented defaults.
type WorkExperienceEntry struct {
	CompanyName    string   `json:"company_name"`
	JobTitle       string   `json:"job_title"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	IsCurrent      bool     `json:"is_current"`
	EmploymentType string   `json:"employment_type"`
	IsPaid         *bool    `json:"is_paid,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty"`
}

// WorkExperiencePayload is the payload shape for work experience batches.
type WorkExperiencePayload struct {
	Experiences []WorkExperienceEntry `json:"work_experiences"`
}

// uploadResponse is the body of POST /api/upload.
type uploadResponse struct {
	Status        string            `json:"status"`
	UploadedFiles map[string]string `json:"uploaded_files"`
	Error         string            `json:"error,omitempty"`
}

// extractResponse is the body of POST /api/extract/sync. The payload keys are
// document classes; values are class-specific shapes decoded lazily.
type extractResponse struct {
	Status  string `json:"status"`
	Data    struct {
		Payload map[string]json.RawMessage `json:"payload"`
	} `json:"data"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}
