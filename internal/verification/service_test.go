package verification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"edulend/loan-portal/loan-portal-backend/internal/extraction"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetState(ctx context.Context, subjectID uuid.UUID) (*SubjectState, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SubjectState), args.Error(1)
}

func (m *MockRepository) SaveKyc(ctx context.Context, subjectID uuid.UUID, rec *KycRecord, overall OverallStatus, expectedVersion int64) error {
	args := m.Called(ctx, subjectID, rec, overall, expectedVersion)
	return args.Error(0)
}

func (m *MockRepository) SaveAcademic(ctx context.Context, subjectID uuid.UUID, rec *AcademicRecord, overall OverallStatus, expectedVersion int64) error {
	args := m.Called(ctx, subjectID, rec, overall, expectedVersion)
	return args.Error(0)
}

func (m *MockRepository) SaveWorkExperience(ctx context.Context, subjectID uuid.UUID, rec *WorkExperienceRecord, overall OverallStatus, expectedVersion int64) error {
	args := m.Called(ctx, subjectID, rec, overall, expectedVersion)
	return args.Error(0)
}

func (m *MockRepository) ListSubjectIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// MockGateway is a mock implementation of the Gateway interface
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGateway) ProcessKYC(ctx context.Context, documents map[string]extraction.File) (*extraction.KYCResult, error) {
	args := m.Called(ctx, documents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.KYCResult), args.Error(1)
}

func (m *MockGateway) ExtractMarksheets(ctx context.Context, class string, files []extraction.File) (*extraction.MarksheetPayload, error) {
	args := m.Called(ctx, class, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.MarksheetPayload), args.Error(1)
}

func (m *MockGateway) ExtractHigherEducation(ctx context.Context, files []extraction.File) (*extraction.HigherEducationPayload, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.HigherEducationPayload), args.Error(1)
}

func (m *MockGateway) ExtractWorkExperiences(ctx context.Context, files []extraction.File) (*extraction.WorkExperiencePayload, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*extraction.WorkExperiencePayload), args.Error(1)
}

func newTestService(repo Repository, gateway Gateway) Service {
	return NewService(repo, gateway, nil, zap.NewNop())
}

func pdfFile(name string) extraction.File {
	return extraction.File{Name: name, ContentType: "application/pdf", Size: 4, Data: []byte("%PDF")}
}

func kycDocs() map[string]extraction.File {
	return map[string]extraction.File{
		SlotAadhaar: pdfFile("aadhaar.pdf"),
		SlotPan:     pdfFile("pan.pdf"),
	}
}

func emptyState(id uuid.UUID) *SubjectState {
	return &SubjectState{SubjectID: id}
}

func TestSubmitKYCAlreadyVerifiedSkipsGateway(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(&SubjectState{
		SubjectID: subjectID,
		Kyc:       &KycRecord{Status: KycVerified},
		Versions:  map[RecordClass]int64{ClassKYC: 3},
	}, nil)

	_, err := service.SubmitKYC(context.Background(), subjectID, kycDocs())
	require.Error(t, err)
	assert.Equal(t, CodeStateConflict, AsError(err).Code)

	gateway.AssertNumberOfCalls(t, "ProcessKYC", 0)
	repo.AssertNotCalled(t, "SaveKyc", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitKYCSuccess(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(emptyState(subjectID), nil)
	gateway.On("ProcessKYC", mock.Anything, mock.Anything).Return(&extraction.KYCResult{
		Status: "verified",
		Data:   extraction.KYCFields{FullName: "Asha Verma"},
	}, nil)
	repo.On("SaveKyc", mock.Anything, subjectID, mock.MatchedBy(func(rec *KycRecord) bool {
		return rec.Status == KycVerified && rec.Data.FullName == "Asha Verma"
	}), OverallComplete, int64(0)).Return(nil)

	result, err := service.SubmitKYC(context.Background(), subjectID, kycDocs())
	require.NoError(t, err)
	assert.Equal(t, OverallComplete, result.OverallStatus)
	assert.Equal(t, KycVerified, result.Kyc.Status)
	repo.AssertExpectations(t)
}

func TestSubmitKYCMissingSlotFailsBeforeGateway(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(emptyState(subjectID), nil)

	_, err := service.SubmitKYC(context.Background(), subjectID, map[string]extraction.File{
		SlotAadhaar: pdfFile("aadhaar.pdf"),
	})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, AsError(err).Code)
	gateway.AssertNumberOfCalls(t, "ProcessKYC", 0)
}

func TestSubmitKYCSubjectNotFound(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(nil, ErrSubjectNotFound)

	_, err := service.SubmitKYC(context.Background(), subjectID, kycDocs())
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, AsError(err).Code)
}

// New subject submits class10: extraction succeeds with one marksheet, the
// stored section stays unverified, and the overall status becomes partial.
func TestSubmitClass10FirstSubmission(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(emptyState(subjectID), nil)
	gateway.On("ExtractMarksheets", mock.Anything, "class10", mock.Anything).Return(&extraction.MarksheetPayload{
		Marksheets: []extraction.MarksheetEntry{{Board: "CBSE", YearOfPassing: 2019, Percentage: 91.2}},
	}, nil)
	repo.On("SaveAcademic", mock.Anything, subjectID, mock.MatchedBy(func(rec *AcademicRecord) bool {
		return rec.Class10 != nil && !rec.Class10.IsVerified && len(rec.Class10.Marksheets) == 1
	}), OverallPartial, int64(0)).Return(nil)

	result, err := service.SubmitClass10(context.Background(), subjectID, []extraction.File{pdfFile("marksheet.pdf")})
	require.NoError(t, err)
	assert.Equal(t, OverallPartial, result.OverallStatus)
	repo.AssertExpectations(t)
}

func TestSubmitClass12WithoutClass10FailsClosed(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(emptyState(subjectID), nil)

	_, err := service.SubmitClass12(context.Background(), subjectID, []extraction.File{pdfFile("marksheet.pdf")})
	require.Error(t, err)
	assert.Equal(t, CodeStateConflict, AsError(err).Code)
	gateway.AssertNumberOfCalls(t, "ExtractMarksheets", 0)
}

func TestSubmitHigherEducationWithOnlyClass10FailsClosed(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(&SubjectState{
		SubjectID: subjectID,
		Academic:  &AcademicRecord{Class10: &SchoolSection{}},
	}, nil)

	_, err := service.SubmitHigherEducation(context.Background(), subjectID, []extraction.File{pdfFile("degree.pdf")})
	require.Error(t, err)
	assert.Equal(t, CodeStateConflict, AsError(err).Code)
	gateway.AssertNumberOfCalls(t, "ExtractHigherEducation", 0)
}

// Higher education submissions append: two detected degrees join the list and
// the overall status is recomputed over the grown record.
func TestSubmitHigherEducationAppends(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(&SubjectState{
		SubjectID: subjectID,
		Academic: &AcademicRecord{
			Class10:         &SchoolSection{IsVerified: true},
			Class12:         &SchoolSection{IsVerified: true},
			HigherEducation: []HigherEducationEntry{{CourseName: "B.Sc", IsVerified: true}},
		},
		Versions: map[RecordClass]int64{ClassAcademic: 4},
	}, nil)
	gateway.On("ExtractHigherEducation", mock.Anything, mock.Anything).Return(&extraction.HigherEducationPayload{
		Degrees: []extraction.DegreeEntry{
			{CourseName: "B.Tech", Institution: "IIT Delhi"},
			{CourseName: "MBA", Institution: "IIM Bangalore"},
		},
	}, nil)
	repo.On("SaveAcademic", mock.Anything, subjectID, mock.MatchedBy(func(rec *AcademicRecord) bool {
		return len(rec.HigherEducation) == 3
	}), OverallComplete, int64(4)).Return(nil)

	result, err := service.SubmitHigherEducation(context.Background(), subjectID, []extraction.File{pdfFile("degree.pdf")})
	require.NoError(t, err)
	assert.Len(t, result.Academic.HigherEducation, 3)
	repo.AssertExpectations(t)
}

// Upstream returns an empty work_experiences array: the submission fails with
// no_usable_data and nothing is persisted.
func TestSubmitWorkExperienceEmptyBatchLeavesRecordUnchanged(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(&SubjectState{
		SubjectID: subjectID,
		Work:      &WorkExperienceRecord{Experiences: []Experience{{CompanyName: "Acme", JobTitle: "Engineer"}}},
		Versions:  map[RecordClass]int64{ClassWorkExperience: 2},
	}, nil)
	gateway.On("ExtractWorkExperiences", mock.Anything, mock.Anything).Return(&extraction.WorkExperiencePayload{}, nil)

	_, err := service.SubmitWorkExperience(context.Background(), subjectID, []extraction.File{pdfFile("letter.pdf")})
	require.Error(t, err)
	assert.Equal(t, CodeNoUsableData, AsError(err).Code)
	repo.AssertNotCalled(t, "SaveWorkExperience", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitWorkExperienceAppendsAndDerivesTotals(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(emptyState(subjectID), nil)
	gateway.On("ExtractWorkExperiences", mock.Anything, mock.Anything).Return(&extraction.WorkExperiencePayload{
		Experiences: []extraction.WorkExperienceEntry{
			{CompanyName: "Acme", JobTitle: "Engineer", StartDate: "2020-01", EndDate: "2023-01"},
		},
	}, nil)
	repo.On("SaveWorkExperience", mock.Anything, subjectID, mock.MatchedBy(func(rec *WorkExperienceRecord) bool {
		return len(rec.Experiences) == 1 && rec.TotalExperienceYears > 2.9 && rec.TotalExperienceYears < 3.1
	}), OverallPartial, int64(0)).Return(nil)

	result, err := service.SubmitWorkExperience(context.Background(), subjectID, []extraction.File{pdfFile("letter.pdf")})
	require.NoError(t, err)
	assert.Equal(t, OverallPartial, result.OverallStatus)
	repo.AssertExpectations(t)
}

func TestSubmitWorkExperienceDeniedForFresher(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(&SubjectState{
		SubjectID: subjectID,
		Work:      &WorkExperienceRecord{IsFresher: true},
	}, nil)

	_, err := service.SubmitWorkExperience(context.Background(), subjectID, []extraction.File{pdfFile("letter.pdf")})
	require.Error(t, err)
	assert.Equal(t, CodeStateConflict, AsError(err).Code)
	gateway.AssertNumberOfCalls(t, "ExtractWorkExperiences", 0)
}

// Marking fresher clears previously extracted entries and completes the work
// record in one write.
func TestSetFresherClearsExperiences(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(&SubjectState{
		SubjectID: subjectID,
		Work: &WorkExperienceRecord{
			Experiences: []Experience{
				{CompanyName: "Acme", JobTitle: "Engineer"},
				{CompanyName: "Beta", JobTitle: "Analyst"},
			},
		},
		Versions: map[RecordClass]int64{ClassWorkExperience: 5},
	}, nil)
	repo.On("SaveWorkExperience", mock.Anything, subjectID, mock.MatchedBy(func(rec *WorkExperienceRecord) bool {
		return rec.IsFresher && len(rec.Experiences) == 0 && rec.TotalExperienceYears == 0
	}), OverallComplete, int64(5)).Return(nil)

	result, err := service.SetFresher(context.Background(), subjectID)
	require.NoError(t, err)
	assert.Equal(t, OverallComplete, result.OverallStatus)
	assert.Empty(t, result.Work.Experiences)
	repo.AssertExpectations(t)
}

// A gateway timeout surfaces as upstream_unavailable and nothing is written.
func TestSubmitClass10UpstreamTimeout(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(emptyState(subjectID), nil)
	gateway.On("ExtractMarksheets", mock.Anything, "class10", mock.Anything).Return(nil, extraction.ErrUnavailable)

	_, err := service.SubmitClass10(context.Background(), subjectID, []extraction.File{pdfFile("marksheet.pdf")})
	require.Error(t, err)
	e := AsError(err)
	assert.Equal(t, CodeUpstreamUnavailable, e.Code)
	assert.Equal(t, 503, e.HTTPStatus())
	repo.AssertNotCalled(t, "SaveAcademic", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitClass10UpstreamProcessingError(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(emptyState(subjectID), nil)
	gateway.On("ExtractMarksheets", mock.Anything, "class10", mock.Anything).
		Return(nil, &extraction.UpstreamError{Detail: "ocr backend crashed"})

	_, err := service.SubmitClass10(context.Background(), subjectID, []extraction.File{pdfFile("marksheet.pdf")})
	require.Error(t, err)
	e := AsError(err)
	assert.Equal(t, CodeUpstreamFailed, e.Code)
	assert.Equal(t, 500, e.HTTPStatus())
}

func TestSubmitClass10OversizedFileRejected(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(emptyState(subjectID), nil)

	oversized := extraction.File{Name: "huge.pdf", ContentType: "application/pdf", Size: 11 << 20, Data: []byte("x")}
	_, err := service.SubmitClass10(context.Background(), subjectID, []extraction.File{oversized})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, AsError(err).Code)
	gateway.AssertNumberOfCalls(t, "ExtractMarksheets", 0)
}

func TestSubmitHigherEducationRequiresPDF(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(&SubjectState{
		SubjectID: subjectID,
		Academic:  &AcademicRecord{Class10: &SchoolSection{}, Class12: &SchoolSection{}},
	}, nil)

	jpeg := extraction.File{Name: "degree.jpg", ContentType: "image/jpeg", Size: 3, Data: []byte("img")}
	_, err := service.SubmitHigherEducation(context.Background(), subjectID, []extraction.File{jpeg})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, AsError(err).Code)
	gateway.AssertNumberOfCalls(t, "ExtractHigherEducation", 0)
}

func TestSaveVersionConflictSurfacesAsConflict(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(emptyState(subjectID), nil)
	gateway.On("ProcessKYC", mock.Anything, mock.Anything).Return(&extraction.KYCResult{
		Status: "pending",
		Data:   extraction.KYCFields{FullName: "Asha Verma"},
	}, nil)
	repo.On("SaveKyc", mock.Anything, subjectID, mock.Anything, OverallPending, int64(0)).Return(ErrVersionConflict)

	_, err := service.SubmitKYC(context.Background(), subjectID, kycDocs())
	require.Error(t, err)
	e := AsError(err)
	assert.Equal(t, CodeWriteConflict, e.Code)
	assert.Equal(t, 409, e.HTTPStatus())
}

func TestReconcileRepairsDriftedStatus(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("ListSubjectIDs", mock.Anything, 200, 0).Return([]uuid.UUID{subjectID}, nil).Once()
	repo.On("ListSubjectIDs", mock.Anything, 200, 200).Return([]uuid.UUID{}, nil).Once()
	repo.On("GetState", mock.Anything, subjectID).Return(&SubjectState{
		SubjectID: subjectID,
		Work:      &WorkExperienceRecord{IsFresher: true},
		Versions:  map[RecordClass]int64{ClassWorkExperience: 1},
		Statuses:  map[RecordClass]OverallStatus{ClassWorkExperience: OverallPending},
	}, nil)
	repo.On("SaveWorkExperience", mock.Anything, subjectID, mock.Anything, OverallComplete, int64(1)).Return(nil)

	repaired, err := service.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, repaired)
	repo.AssertExpectations(t)
}

func TestStatusView(t *testing.T) {
	repo := new(MockRepository)
	gateway := new(MockGateway)
	service := newTestService(repo, gateway)

	subjectID := uuid.New()
	repo.On("GetState", mock.Anything, subjectID).Return(&SubjectState{
		SubjectID: subjectID,
		Kyc:       &KycRecord{Status: KycVerified},
		Statuses: map[RecordClass]OverallStatus{
			ClassKYC:      OverallComplete,
			ClassAcademic: OverallPartial,
		},
	}, nil)

	view, err := service.Status(context.Background(), subjectID)
	require.NoError(t, err)
	assert.Equal(t, KycVerified, view.KycStatus)
	assert.Equal(t, OverallComplete, view.OverallByClass[ClassKYC])
	assert.Equal(t, OverallPartial, view.OverallByClass[ClassAcademic])
	assert.Equal(t, OverallPending, view.OverallByClass[ClassWorkExperience])
}
