package verification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Sentinel errors surfaced by the repository. The service maps them into the
// caller-facing taxonomy.
var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrVersionConflict = errors.New("record version changed since read")
)

// Repository is the persistence boundary for verification records: a
// document-style store keyed by subject id and record class. Each row carries
// the sub-record data and its derived overall status together, so a single
// conditional write keeps them consistent.
type Repository interface {
	GetState(ctx context.Context, subjectID uuid.UUID) (*SubjectState, error)
	SaveKyc(ctx context.Context, subjectID uuid.UUID, rec *KycRecord, overall OverallStatus, expectedVersion int64) error
	SaveAcademic(ctx context.Context, subjectID uuid.UUID, rec *AcademicRecord, overall OverallStatus, expectedVersion int64) error
	SaveWorkExperience(ctx context.Context, subjectID uuid.UUID, rec *WorkExperienceRecord, overall OverallStatus, expectedVersion int64) error

	// ListSubjectIDs pages through subjects that own at least one
	// verification record; used by the reconciliation worker.
	ListSubjectIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a Postgres-backed verification repository.
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

type recordRow struct {
	SubjectID     uuid.UUID `db:"subject_id"`
	RecordClass   string    `db:"record_class"`
	Data          []byte    `db:"data"`
	OverallStatus string    `db:"overall_status"`
	Version       int64     `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r *postgresRepository) GetState(ctx context.Context, subjectID uuid.UUID) (*SubjectState, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM subjects WHERE id = $1)", subjectID)
	if err != nil {
		return nil, fmt.Errorf("checking subject: %w", err)
	}
	if !exists {
		return nil, ErrSubjectNotFound
	}

	var rows []recordRow
	err = r.db.SelectContext(ctx, &rows,
		"SELECT subject_id, record_class, data, overall_status, version, created_at, updated_at FROM verification_records WHERE subject_id = $1",
		subjectID)
	if err != nil {
		return nil, fmt.Errorf("loading verification records: %w", err)
	}

	state := &SubjectState{
		SubjectID: subjectID,
		Versions:  make(map[RecordClass]int64, len(rows)),
		Statuses:  make(map[RecordClass]OverallStatus, len(rows)),
	}
	for _, row := range rows {
		class := RecordClass(row.RecordClass)
		state.Versions[class] = row.Version
		state.Statuses[class] = OverallStatus(row.OverallStatus)

		switch class {
		case ClassKYC:
			state.Kyc = &KycRecord{}
			if err := json.Unmarshal(row.Data, state.Kyc); err != nil {
				return nil, fmt.Errorf("decoding kyc record: %w", err)
			}
		case ClassAcademic:
			state.Academic = &AcademicRecord{}
			if err := json.Unmarshal(row.Data, state.Academic); err != nil {
				return nil, fmt.Errorf("decoding academic record: %w", err)
			}
		case ClassWorkExperience:
			state.Work = &WorkExperienceRecord{}
			if err := json.Unmarshal(row.Data, state.Work); err != nil {
				return nil, fmt.Errorf("decoding work experience record: %w", err)
			}
		}
	}
	return state, nil
}

func (r *postgresRepository) SaveKyc(ctx context.Context, subjectID uuid.UUID, rec *KycRecord, overall OverallStatus, expectedVersion int64) error {
	return r.saveRecord(ctx, subjectID, ClassKYC, rec, overall, expectedVersion)
}

func (r *postgresRepository) SaveAcademic(ctx context.Context, subjectID uuid.UUID, rec *AcademicRecord, overall OverallStatus, expectedVersion int64) error {
	return r.saveRecord(ctx, subjectID, ClassAcademic, rec, overall, expectedVersion)
}

func (r *postgresRepository) SaveWorkExperience(ctx context.Context, subjectID uuid.UUID, rec *WorkExperienceRecord, overall OverallStatus, expectedVersion int64) error {
	return r.saveRecord(ctx, subjectID, ClassWorkExperience, rec, overall, expectedVersion)
}

// saveRecord performs the optimistic upsert. An insert expects version 0; an
// update succeeds only if the stored version still matches what the pipeline
// read, otherwise ErrVersionConflict tells the caller to resubmit.
func (r *postgresRepository) saveRecord(ctx context.Context, subjectID uuid.UUID, class RecordClass, data any, overall OverallStatus, expectedVersion int64) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s record: %w", class, err)
	}

	var result sql.Result
	if expectedVersion == 0 {
		result, err = r.db.ExecContext(ctx, `
			INSERT INTO verification_records (subject_id, record_class, data, overall_status, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 1, NOW(), NOW())
			ON CONFLICT (subject_id, record_class) DO NOTHING`,
			subjectID, class, encoded, overall)
	} else {
		result, err = r.db.ExecContext(ctx, `
			UPDATE verification_records
			SET data = $3, overall_status = $4, version = version + 1, updated_at = NOW()
			WHERE subject_id = $1 AND record_class = $2 AND version = $5`,
			subjectID, class, encoded, overall, expectedVersion)
	}
	if err != nil {
		return fmt.Errorf("writing %s record: %w", class, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("writing %s record: %w", class, err)
	}
	if affected != 1 {
		return ErrVersionConflict
	}
	return nil
}

func (r *postgresRepository) ListSubjectIDs(ctx context.Context, limit, offset int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids,
		"SELECT DISTINCT subject_id FROM verification_records ORDER BY subject_id LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	return ids, nil
}
