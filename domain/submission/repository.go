package submission

//go:generate mockgen -source=repository.go -destination=mock_repository.go -package=submission

import (
	"context"
	"sync"

	"github.com/akeren/submission-history/internal/models"
	apperrors "github.com/akeren/submission-history/pkg/errors"
	"gorm.io/gorm"
)

type SubmissionRepository interface {
	// Initialize creates the submissions table and its index if they are missing. It is idempotent and
	// safe for concurrent use; Append and QueryRanked call it before touching the table.
	Initialize(ctx context.Context) error
	// Append stores one submission. The id and submitted_at columns are generated by the store.
	Append(ctx context.Context, date, firstName, lastName string) error
	// QueryRanked returns at most limit history entries, newest date first.
	QueryRanked(ctx context.Context, limit int) ([]models.HistoryEntry, error)
}

type submissionRepository struct {
	db *gorm.DB

	initMu      sync.Mutex
	initialized bool
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (sr *submissionRepository) Initialize(ctx context.Context) error {
	sr.initMu.Lock()
	defer sr.initMu.Unlock()

	if sr.initialized {
		return nil
	}

	if err := sr.db.WithContext(ctx).AutoMigrate(&models.Submission{}); err != nil {
		return apperrors.NewDatabaseError("unable to initialize submissions table", err)
	}

	sr.initialized = true
	return nil
}

func (sr *submissionRepository) Append(ctx context.Context, date, firstName, lastName string) error {
	if err := sr.Initialize(ctx); err != nil {
		return err
	}

	record := &models.Submission{
		Date:      date,
		FirstName: firstName,
		LastName:  lastName,
	}

	if err := sr.db.WithContext(ctx).Create(record).Error; err != nil {
		return apperrors.NewDatabaseError("unable to store submission", err)
	}

	return nil
}

func (sr *submissionRepository) QueryRanked(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if err := sr.Initialize(ctx); err != nil {
		return nil, err
	}

	entries, err := rankedHistory(ctx, sr.db, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("unable to query submission history", err)
	}

	return entries, nil
}
