package verification

import (
	"strings"
	"time"

	"edulend/loan-portal/loan-portal-backend/internal/extraction"
)

// The extractor's payload shapes are not contractually stable: optional
// fields go missing between upstream releases. Documented defaults below keep
// the canonical records total.
const (
	defaultConfidence     = 0.5
	defaultEmploymentType = EmploymentFullTime
)

// transformKyc maps an upstream KYC verdict into the canonical record. The
// upstream owns the verified/rejected/manual_review decision; a status
// outside the closed set is unprocessable, not a crash.
func transformKyc(res *extraction.KYCResult) (*KycRecord, error) {
	status := KycStatus(res.Status)
	if !status.Valid() {
		return nil, errNoUsableData("could not interpret kyc verification result")
	}
	if strings.TrimSpace(res.Data.FullName) == "" {
		return nil, errNoUsableData("kyc documents did not yield an identity")
	}
	return &KycRecord{
		Status: status,
		Data: KycData{
			FullName:      res.Data.FullName,
			DateOfBirth:   res.Data.DateOfBirth,
			AadhaarNumber: res.Data.AadhaarNumber,
			PanNumber:     res.Data.PanNumber,
			Address:       res.Data.Address,
			FatherName:    res.Data.FatherName,
		},
		VerifiedAt: res.VerifiedAt,
		RejectedAt: res.RejectedAt,
	}, nil
}

// transformMarksheets normalizes a class10/class12 payload. Entries lacking
// both a board and a passing year carry no identifying information and are
// dropped; extraction never auto-verifies, so IsVerified stays false.
func transformMarksheets(payload *extraction.MarksheetPayload) (*SchoolSection, error) {
	sheets := make([]Marksheet, 0, len(payload.Marksheets))
	for _, m := range payload.Marksheets {
		if strings.TrimSpace(m.Board) == "" && m.YearOfPassing == 0 {
			continue
		}
		sheets = append(sheets, Marksheet{
			Board:         m.Board,
			School:        m.SchoolName,
			YearOfPassing: m.YearOfPassing,
			Percentage:    m.Percentage,
			Confidence:    confidenceOrDefault(m.Confidence),
		})
	}
	if len(sheets) == 0 {
		return nil, errNoUsableData("could not extract valid marksheet data from the submitted documents")
	}
	return &SchoolSection{Marksheets: sheets}, nil
}

// transformDegrees normalizes detected higher education entries. An entry
// needs at least a course name or an institution to be identifiable.
func transformDegrees(payload *extraction.HigherEducationPayload) ([]HigherEducationEntry, error) {
	entries := make([]HigherEducationEntry, 0, len(payload.Degrees))
	for _, d := range payload.Degrees {
		if strings.TrimSpace(d.CourseName) == "" && strings.TrimSpace(d.Institution) == "" {
			continue
		}
		educationType := d.EducationType
		if educationType == "" {
			educationType = "degree"
		}
		entries = append(entries, HigherEducationEntry{
			EducationType:  educationType,
			Institution:    d.Institution,
			CourseName:     d.CourseName,
			Specialization: d.Specialization,
			StartYear:      d.StartYear,
			EndYear:        d.EndYear,
			Score:          d.Score,
			Confidence:     confidenceOrDefault(d.Confidence),
		})
	}
	if len(entries) == 0 {
		return nil, errNoUsableData("could not extract valid degree data from the submitted documents")
	}
	return entries, nil
}

// transformExperiences normalizes a work experience batch. Entries without
// both a company name and a job title are dropped; if everything drops the
// whole submission fails rather than silently persisting an empty batch.
func transformExperiences(payload *extraction.WorkExperiencePayload) ([]Experience, error) {
	entries := make([]Experience, 0, len(payload.Experiences))
	for _, e := range payload.Experiences {
		if strings.TrimSpace(e.CompanyName) == "" || strings.TrimSpace(e.JobTitle) == "" {
			continue
		}
		employmentType := EmploymentType(e.EmploymentType)
		switch employmentType {
		case EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentInternship:
		default:
			employmentType = defaultEmploymentType
		}
		isPaid := true
		if e.IsPaid != nil {
			isPaid = *e.IsPaid
		}
		entries = append(entries, Experience{
			CompanyName:    e.CompanyName,
			JobTitle:       e.JobTitle,
			StartDate:      e.StartDate,
			EndDate:        e.EndDate,
			IsCurrent:      e.IsCurrent,
			EmploymentType: employmentType,
			IsPaid:         isPaid,
			Confidence:     confidenceOrDefault(e.Confidence),
		})
	}
	if len(entries) == 0 {
		return nil, errNoUsableData("could not extract valid work experience data from the submitted documents")
	}
	return entries, nil
}

func confidenceOrDefault(c *float64) float64 {
	if c == nil {
		return defaultConfidence
	}
	return *c
}

// totalExperienceYears derives the cumulative duration across entries.
// Dates arrive as YYYY-MM; unparseable entries contribute nothing.
func totalExperienceYears(experiences []Experience, now time.Time) float64 {
	var months int
	for _, e := range experiences {
		start, err := time.Parse("2006-01", e.StartDate)
		if err != nil {
			continue
		}
		end := now
		if !e.IsCurrent && e.EndDate != "" {
			parsed, err := time.Parse("2006-01", e.EndDate)
			if err != nil {
				continue
			}
			end = parsed
		}
		if end.Before(start) {
			continue
		}
		months += int(end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	}
	return float64(months) / 12.0
}
