package verification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"edulend/loan-portal/loan-portal-backend/internal/extraction"
)

// Gateway is the consumer-side view of the extraction client. The service
// depends on this interface so pipeline tests can assert the gateway is never
// invoked on guard denials.
type Gateway interface {
	Health(ctx context.Context) error
	ProcessKYC(ctx context.Context, documents map[string]extraction.File) (*extraction.KYCResult, error)
	ExtractMarksheets(ctx context.Context, class string, files []extraction.File) (*extraction.MarksheetPayload, error)
	ExtractHigherEducation(ctx context.Context, files []extraction.File) (*extraction.HigherEducationPayload, error)
	ExtractWorkExperiences(ctx context.Context, files []extraction.File) (*extraction.WorkExperiencePayload, error)
}

// DocumentArchive stores accepted submissions for audit. Archival runs after
// persistence and never fails the caller-visible operation.
type DocumentArchive interface {
	Store(ctx context.Context, subjectID uuid.UUID, class DocumentClass, file extraction.File) error
}

// SubmissionResult is what every pipeline returns: the updated sub-record
// plus the recomputed overall status for its record class.
type SubmissionResult struct {
	OverallStatus OverallStatus         `json:"overall_status"`
	Kyc           *KycRecord            `json:"kyc,omitempty"`
	Academic      *AcademicRecord       `json:"academic,omitempty"`
	Work          *WorkExperienceRecord `json:"work_experience,omitempty"`
}

// Service exposes the five document verification pipelines plus the
// aggregate views consumed by dashboards and loan matching.
type Service interface {
	SubmitKYC(ctx context.Context, subjectID uuid.UUID, documents map[string]extraction.File) (*SubmissionResult, error)
	SubmitClass10(ctx context.Context, subjectID uuid.UUID, files []extraction.File) (*SubmissionResult, error)
	SubmitClass12(ctx context.Context, subjectID uuid.UUID, files []extraction.File) (*SubmissionResult, error)
	SubmitHigherEducation(ctx context.Context, subjectID uuid.UUID, files []extraction.File) (*SubmissionResult, error)
	SubmitWorkExperience(ctx context.Context, subjectID uuid.UUID, files []extraction.File) (*SubmissionResult, error)
	SetFresher(ctx context.Context, subjectID uuid.UUID) (*SubmissionResult, error)

	Status(ctx context.Context, subjectID uuid.UUID) (*StatusView, error)
	UpstreamHealthy(ctx context.Context) bool

	Reconcile(ctx context.Context) (int, error)
}

type verificationService struct {
	repo    Repository
	gateway Gateway
	archive DocumentArchive
	logger  *zap.Logger
	locks   *subjectLocks
	now     func() time.Time
}

// NewService wires a verification service. The archive may be nil when no
// document store is configured.
func NewService(repo Repository, gateway Gateway, archive DocumentArchive, logger *zap.Logger) Service {
	return &verificationService{
		repo:    repo,
		gateway: gateway,
		archive: archive,
		logger:  logger,
		locks:   newSubjectLocks(),
		now:     time.Now,
	}
}

// KYC document slots. Aadhaar and PAN are mandatory, the selfie optional.
const (
	SlotAadhaar = "aadhaar"
	SlotPan     = "pan"
	SlotSelfie  = "selfie"
)

func (s *verificationService) SubmitKYC(ctx context.Context, subjectID uuid.UUID, documents map[string]extraction.File) (*SubmissionResult, error) {
	release := s.locks.acquire(subjectID, ClassKYC)
	defer release()

	state, err := s.loadState(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(state, DocKYC); err != nil {
		return nil, err
	}
	if err := validateKycDocuments(documents); err != nil {
		return nil, err
	}

	raw, err := s.gateway.ProcessKYC(ctx, documents)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	record, err := transformKyc(raw)
	if err != nil {
		return nil, err
	}

	overall := RecomputeKycStatus(record)
	if err := s.save(ctx, subjectID, ClassKYC, state, record, overall); err != nil {
		return nil, err
	}
	s.archiveFiles(ctx, subjectID, DocKYC, slotFiles(documents))

	return &SubmissionResult{OverallStatus: overall, Kyc: record}, nil
}

func (s *verificationService) SubmitClass10(ctx context.Context, subjectID uuid.UUID, files []extraction.File) (*SubmissionResult, error) {
	return s.submitSchoolSection(ctx, subjectID, DocClass10, files)
}

func (s *verificationService) SubmitClass12(ctx context.Context, subjectID uuid.UUID, files []extraction.File) (*SubmissionResult, error) {
	return s.submitSchoolSection(ctx, subjectID, DocClass12, files)
}

func (s *verificationService) submitSchoolSection(ctx context.Context, subjectID uuid.UUID, class DocumentClass, files []extraction.File) (*SubmissionResult, error) {
	release := s.locks.acquire(subjectID, ClassAcademic)
	defer release()

	state, err := s.loadState(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(state, class); err != nil {
		return nil, err
	}
	if err := validateFiles(files, marksheetTypes, "marksheet"); err != nil {
		return nil, err
	}

	payload, err := s.gateway.ExtractMarksheets(ctx, string(class), files)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	section, err := transformMarksheets(payload)
	if err != nil {
		return nil, err
	}

	record := state.Academic
	if record == nil {
		record = &AcademicRecord{}
	}
	if class == DocClass10 {
		record.Class10 = section
	} else {
		record.Class12 = section
	}

	overall := RecomputeAcademicStatus(record)
	if err := s.save(ctx, subjectID, ClassAcademic, state, record, overall); err != nil {
		return nil, err
	}
	s.archiveFiles(ctx, subjectID, class, files)

	return &SubmissionResult{OverallStatus: overall, Academic: record}, nil
}

func (s *verificationService) SubmitHigherEducation(ctx context.Context, subjectID uuid.UUID, files []extraction.File) (*SubmissionResult, error) {
	release := s.locks.acquire(subjectID, ClassAcademic)
	defer release()

	state, err := s.loadState(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(state, DocHigherEducation); err != nil {
		return nil, err
	}
	if err := validateFiles(files, graduationTypes, "graduation document"); err != nil {
		return nil, err
	}

	payload, err := s.gateway.ExtractHigherEducation(ctx, files)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	entries, err := transformDegrees(payload)
	if err != nil {
		return nil, err
	}

	record := state.Academic
	record.HigherEducation = append(record.HigherEducation, entries...)

	overall := RecomputeAcademicStatus(record)
	if err := s.save(ctx, subjectID, ClassAcademic, state, record, overall); err != nil {
		return nil, err
	}
	s.archiveFiles(ctx, subjectID, DocHigherEducation, files)

	return &SubmissionResult{OverallStatus: overall, Academic: record}, nil
}

func (s *verificationService) SubmitWorkExperience(ctx context.Context, subjectID uuid.UUID, files []extraction.File) (*SubmissionResult, error) {
	release := s.locks.acquire(subjectID, ClassWorkExperience)
	defer release()

	state, err := s.loadState(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := s.guard(state, DocWorkExperience); err != nil {
		return nil, err
	}
	if err := validateFiles(files, marksheetTypes, "work experience document"); err != nil {
		return nil, err
	}

	payload, err := s.gateway.ExtractWorkExperiences(ctx, files)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	entries, err := transformExperiences(payload)
	if err != nil {
		return nil, err
	}

	record := state.Work
	if record == nil {
		record = &WorkExperienceRecord{Experiences: []Experience{}}
	}
	record.Experiences = append(record.Experiences, entries...)
	record.TotalExperienceYears = totalExperienceYears(record.Experiences, s.now())

	overall := RecomputeWorkStatus(record)
	if err := s.save(ctx, subjectID, ClassWorkExperience, state, record, overall); err != nil {
		return nil, err
	}
	s.archiveFiles(ctx, subjectID, DocWorkExperience, files)

	return &SubmissionResult{OverallStatus: overall, Work: record}, nil
}

// SetFresher marks the subject as having no prior work experience. This
// clears any previously extracted entries and completes the work record.
// Un-marking is rejected: the cleared entries are unrecoverable, so the only
// safe path back is through support, not the API.
func (s *verificationService) SetFresher(ctx context.Context, subjectID uuid.UUID) (*SubmissionResult, error) {
	release := s.locks.acquire(subjectID, ClassWorkExperience)
	defer release()

	state, err := s.loadState(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	record := &WorkExperienceRecord{
		IsFresher:   true,
		Experiences: []Experience{},
	}
	overall := RecomputeWorkStatus(record)
	if err := s.save(ctx, subjectID, ClassWorkExperience, state, record, overall); err != nil {
		return nil, err
	}
	return &SubmissionResult{OverallStatus: overall, Work: record}, nil
}

func (s *verificationService) Status(ctx context.Context, subjectID uuid.UUID) (*StatusView, error) {
	state, err := s.loadState(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	view := &StatusView{
		SubjectID: subjectID,
		KycStatus: KycPending,
		OverallByClass: map[RecordClass]OverallStatus{
			ClassKYC:            OverallPending,
			ClassAcademic:       OverallPending,
			ClassWorkExperience: OverallPending,
		},
	}
	if state.Kyc != nil {
		view.KycStatus = state.Kyc.Status
	}
	for class, status := range state.Statuses {
		view.OverallByClass[class] = status
	}
	return view, nil
}

// UpstreamHealthy is a pre-flight indicator only; a false result never blocks
// a submission.
func (s *verificationService) UpstreamHealthy(ctx context.Context) bool {
	return s.gateway.Health(ctx) == nil
}

// Reconcile recomputes the overall status of every stored record and repairs
// rows whose status drifted from their sub-parts (the residue of Internal
// failures). Returns the number of repaired rows.
func (s *verificationService) Reconcile(ctx context.Context) (int, error) {
	const pageSize = 200
	repaired := 0
	for offset := 0; ; offset += pageSize {
		ids, err := s.repo.ListSubjectIDs(ctx, pageSize, offset)
		if err != nil {
			return repaired, err
		}
		if len(ids) == 0 {
			return repaired, nil
		}
		for _, id := range ids {
			n, err := s.reconcileSubject(ctx, id)
			if err != nil {
				s.logger.Error("reconciliation failed for subject",
					zap.String("subject_id", id.String()), zap.Error(err))
				continue
			}
			repaired += n
		}
	}
}

func (s *verificationService) reconcileSubject(ctx context.Context, subjectID uuid.UUID) (int, error) {
	state, err := s.repo.GetState(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	repaired := 0

	if state.Kyc != nil {
		if want := RecomputeKycStatus(state.Kyc); want != state.Statuses[ClassKYC] {
			if err := s.repo.SaveKyc(ctx, subjectID, state.Kyc, want, state.Version(ClassKYC)); err == nil {
				repaired++
			}
		}
	}
	if state.Academic != nil {
		if want := RecomputeAcademicStatus(state.Academic); want != state.Statuses[ClassAcademic] {
			if err := s.repo.SaveAcademic(ctx, subjectID, state.Academic, want, state.Version(ClassAcademic)); err == nil {
				repaired++
			}
		}
	}
	if state.Work != nil {
		if want := RecomputeWorkStatus(state.Work); want != state.Statuses[ClassWorkExperience] {
			if err := s.repo.SaveWorkExperience(ctx, subjectID, state.Work, want, state.Version(ClassWorkExperience)); err == nil {
				repaired++
			}
		}
	}
	return repaired, nil
}

// --- shared pipeline steps ---

func (s *verificationService) loadState(ctx context.Context, subjectID uuid.UUID) (*SubjectState, error) {
	state, err := s.repo.GetState(ctx, subjectID)
	if errors.Is(err, ErrSubjectNotFound) {
		return nil, errNotFound("subject")
	}
	if err != nil {
		return nil, errInternal("loading verification state", err)
	}
	return state, nil
}

func (s *verificationService) guard(state *SubjectState, class DocumentClass) error {
	decision, err := CanSubmit(state, class)
	if err != nil {
		return errInternal("submission guard failed", err)
	}
	if !decision.Allowed {
		return errStateConflict(decision.Reason)
	}
	return nil
}

// save persists the sub-record together with its recomputed overall status.
// A version conflict means a concurrent writer won the race; everything else
// after a successful extraction is an internal condition that the
// reconciliation worker must be able to find, so it is logged distinctly.
func (s *verificationService) save(ctx context.Context, subjectID uuid.UUID, class RecordClass, state *SubjectState, record any, overall OverallStatus) error {
	version := state.Version(class)
	var err error
	switch class {
	case ClassKYC:
		err = s.repo.SaveKyc(ctx, subjectID, record.(*KycRecord), overall, version)
	case ClassAcademic:
		err = s.repo.SaveAcademic(ctx, subjectID, record.(*AcademicRecord), overall, version)
	case ClassWorkExperience:
		err = s.repo.SaveWorkExperience(ctx, subjectID, record.(*WorkExperienceRecord), overall, version)
	}
	if errors.Is(err, ErrVersionConflict) {
		return errWriteConflict()
	}
	if err != nil {
		s.logger.Error("post-extraction persistence failed, record needs reconciliation",
			zap.String("subject_id", subjectID.String()),
			zap.String("record_class", string(class)),
			zap.Error(err))
		return errInternal("persisting verification record", err)
	}
	return nil
}

func (s *verificationService) archiveFiles(ctx context.Context, subjectID uuid.UUID, class DocumentClass, files []extraction.File) {
	if s.archive == nil {
		return
	}
	for _, f := range files {
		if err := s.archive.Store(ctx, subjectID, class, f); err != nil {
			s.logger.Warn("archiving submission failed",
				zap.String("subject_id", subjectID.String()),
				zap.String("document_class", string(class)),
				zap.String("file", f.Name),
				zap.Error(err))
		}
	}
}

func slotFiles(documents map[string]extraction.File) []extraction.File {
	files := make([]extraction.File, 0, len(documents))
	for _, f := range documents {
		files = append(files, f)
	}
	return files
}

func mapGatewayError(err error) error {
	switch {
	case errors.Is(err, extraction.ErrNoData):
		return errNoUsableData("submitted documents were unreadable for this document class")
	case errors.Is(err, extraction.ErrUnavailable):
		return errUpstreamUnavailable(err)
	default:
		return errUpstreamFailed(err)
	}
}
