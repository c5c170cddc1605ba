package submission

//go:generate mockgen -source=service.go -destination=mock_service.go -package=submission

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/akeren/submission-history/internal/log"
	"github.com/akeren/submission-history/pkg/constants"
	apperrors "github.com/akeren/submission-history/pkg/errors"
	"github.com/akeren/submission-history/pkg/validation"
)

type SubmissionService interface {
	// Submit waits out the processing delay, validates the names, stores the submission and echoes it
	// back between MinEchoItems and MaxEchoItems times.
	Submit(ctx context.Context, req *SubmitRequest) ([]SubmissionEcho, error)

	// ListHistory returns the newest HistoryLimit submissions with their prior-submission counts.
	ListHistory(ctx context.Context) ([]HistoryEntryResponse, error)
}

// RandomSource is the subset of *rand.Rand the service draws from.
type RandomSource interface {
	IntN(n int) int
	Int64N(n int64) int64
}

// Sleeper blocks for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

type SleeperFunc func(ctx context.Context, d time.Duration)

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) {
	f(ctx, d)
}

type ServiceOptions struct {
	Random   RandomSource
	Sleeper  Sleeper
	MaxDelay time.Duration
}

type submissionService struct {
	logger     *log.Logger
	repository SubmissionRepository
	random     RandomSource
	sleeper    Sleeper
	maxDelay   time.Duration
}

// NewSubmissionService fills unset options with a time-seeded source and a timer-based sleeper.
// A zero MaxDelay disables the delay.
func NewSubmissionService(logger *log.Logger, repository SubmissionRepository, opts ServiceOptions) SubmissionService {
	if opts.Random == nil {
		opts.Random = newLockedRand()
	}
	if opts.Sleeper == nil {
		opts.Sleeper = SleeperFunc(sleepContext)
	}

	return &submissionService{
		logger:     logger,
		repository: repository,
		random:     opts.Random,
		sleeper:    opts.Sleeper,
		maxDelay:   opts.MaxDelay,
	}
}

func (s *submissionService) Submit(ctx context.Context, req *SubmitRequest) ([]SubmissionEcho, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	if req == nil {
		logger.Error("Submit received empty request")
		return nil, apperrors.NewInvalidRequestError("request cannot be nil", nil)
	}

	// Once accepted, a submission completes even if the client goes away.
	workCtx := context.WithoutCancel(ctx)

	if s.maxDelay > 0 {
		s.sleeper.Sleep(workCtx, time.Duration(s.random.Int64N(int64(s.maxDelay))))
	}

	if fields := validation.ValidateSubmission(req.FirstName, req.LastName); fields != nil {
		logger.Info("Submission rejected", "fields", fields)
		return nil, apperrors.NewValidationError("submission failed validation", fields)
	}

	if err := s.repository.Append(workCtx, req.Date, req.FirstName, req.LastName); err != nil {
		logger.Error("Failed to store submission", "error", err)
		return nil, err
	}

	count := constants.MinEchoItems + s.random.IntN(constants.MaxEchoItems-constants.MinEchoItems+1)
	echo := ToSubmissionEcho(req)

	items := make([]SubmissionEcho, count)
	for i := range items {
		items[i] = echo
	}

	logger.Info("Submission stored", "date", req.Date, "echo_items", count)
	return items, nil
}

func (s *submissionService) ListHistory(ctx context.Context) ([]HistoryEntryResponse, error) {
	logger := log.GetLoggerInstanceFromContext(ctx, s.logger)

	entries, err := s.repository.QueryRanked(ctx, constants.HistoryLimit)
	if err != nil {
		logger.Error("Failed to query submission history", "error", err)
		return nil, err
	}

	responses := make([]HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, ToHistoryEntryResponse(entry))
	}

	return responses, nil
}

// lockedRand serializes access to a *rand.Rand, which is not safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newLockedRand() *lockedRand {
	seed := uint64(time.Now().UnixNano())
	return &lockedRand{rnd: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

func (r *lockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.IntN(n)
}

func (r *lockedRand) Int64N(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Int64N(n)
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
