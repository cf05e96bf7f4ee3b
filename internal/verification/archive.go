package verification

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"edulend/loan-portal/loan-portal-backend/internal/extraction"
	"edulend/loan-portal/loan-portal-backend/pkg/storage"
)

// s3Archive keeps an audit copy of every accepted submission in object
// storage. Keys are namespaced by subject and document class; the timestamp
// keeps resubmissions from overwriting earlier evidence.
type s3Archive struct {
	client storage.S3Client
	bucket string
	now    func() time.Time
}

// NewS3Archive adapts the shared S3 client into a DocumentArchive.
func NewS3Archive(client storage.S3Client, bucket string) DocumentArchive {
	return &s3Archive{client: client, bucket: bucket, now: time.Now}
}

func (a *s3Archive) Store(ctx context.Context, subjectID uuid.UUID, class DocumentClass, file extraction.File) error {
	key := fmt.Sprintf("submissions/%s/%s/%d-%s", subjectID, class, a.now().UnixNano(), file.Name)
	return a.client.Upload(ctx, a.bucket, key, bytes.NewReader(file.Data))
}
