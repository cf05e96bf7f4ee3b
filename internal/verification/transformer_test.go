package verification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edulend/loan-portal/loan-portal-backend/internal/extraction"
)

func TestTransformKyc(t *testing.T) {
	verifiedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	record, err := transformKyc(&extraction.KYCResult{
		Status: "verified",
		Data: extraction.KYCFields{
			FullName:      "Asha Verma",
			AadhaarNumber: "1234-5678-9012",
			PanNumber:     "ABCDE1234F",
		},
		VerifiedAt: &verifiedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, KycVerified, record.Status)
	assert.Equal(t, "Asha Verma", record.Data.FullName)
	assert.Equal(t, &verifiedAt, record.VerifiedAt)
}

func TestTransformKycRejectsUnknownStatus(t *testing.T) {
	_, err := transformKyc(&extraction.KYCResult{Status: "approved-ish", Data: extraction.KYCFields{FullName: "X"}})
	require.Error(t, err)
	assert.Equal(t, CodeNoUsableData, AsError(err).Code)
}

func TestTransformKycRequiresIdentity(t *testing.T) {
	_, err := transformKyc(&extraction.KYCResult{Status: "pending"})
	require.Error(t, err)
	assert.Equal(t, CodeNoUsableData, AsError(err).Code)
}

func TestTransformMarksheetsAppliesDefaultsAndDrops(t *testing.T) {
	conf := 0.9
	section, err := transformMarksheets(&extraction.MarksheetPayload{
		Marksheets: []extraction.MarksheetEntry{
			{Board: "CBSE", YearOfPassing: 2019, Percentage: 88.4, Confidence: &conf},
			{Board: "", YearOfPassing: 0}, // unidentifiable, dropped
			{Board: "ICSE", YearOfPassing: 2019},
		},
	})
	require.NoError(t, err)
	require.Len(t, section.Marksheets, 2)
	assert.False(t, section.IsVerified, "extraction never auto-verifies")
	assert.Equal(t, 0.9, section.Marksheets[0].Confidence)
	assert.Equal(t, defaultConfidence, section.Marksheets[1].Confidence)
}

func TestTransformMarksheetsAllDropped(t *testing.T) {
	_, err := transformMarksheets(&extraction.MarksheetPayload{
		Marksheets: []extraction.MarksheetEntry{{}, {}},
	})
	require.Error(t, err)
	assert.Equal(t, CodeNoUsableData, AsError(err).Code)
}

func TestTransformExperiencesDefaults(t *testing.T) {
	entries, err := transformExperiences(&extraction.WorkExperiencePayload{
		Experiences: []extraction.WorkExperienceEntry{
			{CompanyName: "Acme", JobTitle: "Engineer", StartDate: "2021-06", EndDate: "2023-06"},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EmploymentFullTime, entries[0].EmploymentType)
	assert.True(t, entries[0].IsPaid)
	assert.Equal(t, defaultConfidence, entries[0].Confidence)
	assert.False(t, entries[0].Verified)
}

func TestTransformExperiencesDropsIncompleteEntries(t *testing.T) {
	isPaid := false
	entries, err := transformExperiences(&extraction.WorkExperiencePayload{
		Experiences: []extraction.WorkExperienceEntry{
			{CompanyName: "Acme", JobTitle: ""},       // missing title, dropped
			{CompanyName: "", JobTitle: "Engineer"},   // missing company, dropped
			{CompanyName: "Beta", JobTitle: "Intern", EmploymentType: "internship", IsPaid: &isPaid},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EmploymentInternship, entries[0].EmploymentType)
	assert.False(t, entries[0].IsPaid)
}

func TestTransformExperiencesAllDroppedFailsWholeBatch(t *testing.T) {
	_, err := transformExperiences(&extraction.WorkExperiencePayload{
		Experiences: []extraction.WorkExperienceEntry{
			{CompanyName: "Acme"},
			{JobTitle: "Engineer"},
		},
	})
	require.Error(t, err)
	assert.Equal(t, CodeNoUsableData, AsError(err).Code)
}

func TestTransformExperiencesEmptyBatch(t *testing.T) {
	_, err := transformExperiences(&extraction.WorkExperiencePayload{})
	require.Error(t, err)
	assert.Equal(t, CodeNoUsableData, AsError(err).Code)
}

func TestTransformDegrees(t *testing.T) {
	entries, err := transformDegrees(&extraction.HigherEducationPayload{
		Degrees: []extraction.DegreeEntry{
			{CourseName: "B.Tech", Institution: "IIT Delhi", EducationType: "undergraduate"},
			{CourseName: "", Institution: ""}, // dropped
			{CourseName: "MBA"},
		},
	})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "undergraduate", entries[0].EducationType)
	assert.Equal(t, "degree", entries[1].EducationType)
	assert.False(t, entries[0].IsVerified)
}

func TestTotalExperienceYears(t *testing.T) {
	now := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	years := totalExperienceYears([]Experience{
		{StartDate: "2020-01", EndDate: "2022-01"},             // 2 years
		{StartDate: "2024-09", IsCurrent: true},                // 2 years to now
		{StartDate: "garbled", EndDate: "2022-01"},             // ignored
		{StartDate: "2023-05", EndDate: "2022-01"},             // end before start, ignored
	}, now)
	assert.InDelta(t, 4.0, years, 0.01)
}
