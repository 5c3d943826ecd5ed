package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NadafAyan/BloodShare/internal/domain"
	"github.com/NadafAyan/BloodShare/internal/events"
	"github.com/NadafAyan/BloodShare/internal/observability"
	"github.com/NadafAyan/BloodShare/internal/repository"
	"github.com/NadafAyan/BloodShare/internal/validation"
	apperrors "github.com/NadafAyan/BloodShare/pkg/util/errorutil"
)

// DonorService coordinates registration, search and approval workflows.
type DonorService struct {
	store        repository.DonorRepository
	validator    *validation.Validator
	dispatcher   events.Dispatcher
	cache        *SearchCache
	metrics      *observability.Metrics
	logger       *zap.Logger
	retry        RetryPolicy
	defaultLimit int
	maxLimit     int
}

// DonorDependencies bundles collaborators for the donor service. Only Store
// and Validator are required.
type DonorDependencies struct {
	Store           repository.DonorRepository
	Validator       *validation.Validator
	Dispatcher      events.Dispatcher
	Cache           *SearchCache
	Metrics         *observability.Metrics
	Logger          *zap.Logger
	Retry           RetryPolicy
	DefaultPageSize int
	MaxPageSize     int
}

// SearchInput is a parsed search request.
type SearchInput struct {
	Filters repository.SearchFilters
	Limit   int
	Offset  int
}

// RawSearch carries search parameters as received from a client.
type RawSearch struct {
	BloodGroup   string
	City         string
	Availability string
	Status       string
	Limit        int
	Offset       int
}

// NewDonorService constructs the service.
func NewDonorService(deps DonorDependencies) *DonorService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultLimit := deps.DefaultPageSize
	if defaultLimit <= 0 {
		defaultLimit = repository.DefaultLimit
	}
	maxLimit := deps.MaxPageSize
	if maxLimit <= 0 || maxLimit > repository.MaxLimit {
		maxLimit = repository.MaxLimit
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &DonorService{
		store:        deps.Store,
		validator:    deps.Validator,
		dispatcher:   deps.Dispatcher,
		cache:        deps.Cache,
		metrics:      deps.Metrics,
		logger:       logger.Named("donors"),
		retry:        deps.Retry,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Register validates raw input and stores a pending donor. Inserts are never
// retried: a lost reply could otherwise turn into a spurious duplicate.
func (s *DonorService) Register(ctx context.Context, raw map[string]any) (*domain.Donor, error) {
	donor, fieldErrs := s.validator.Validate(raw)
	if len(fieldErrs) > 0 {
		s.metrics.RecordRegistration("invalid")
		return nil, apperrors.NewValidationError("registration is invalid", fieldErrs.Details())
	}

	if err := s.store.Insert(ctx, donor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordRegistration("duplicate")
		} else {
			s.metrics.RecordRegistration("error")
		}
		return nil, mapStoreError(err, 0)
	}

	s.metrics.RecordRegistration("accepted")
	s.logger.Info("donor registered",
		zap.Int64("donor_id", donor.ID),
		zap.String("blood_group", string(donor.BloodGroup)),
		zap.String("city", donor.City))
	s.publish(ctx, events.NewEvent(events.EventDonorRegistered, donor.ID, events.DonorRegisteredPayload{
		BloodGroup:            donor.BloodGroup,
		City:                  donor.City,
		AvailableForEmergency: donor.AvailableForEmergency,
	}))
	return donor, nil
}

// Get returns a donor by id regardless of status.
func (s *DonorService) Get(ctx context.Context, id int64) (*domain.Donor, error) {
	donor, err := withRetry(ctx, s.retry, func() (*domain.Donor, error) {
		return s.store.Get(ctx, id)
	})
	if err != nil {
		return nil, mapStoreError(err, id)
	}
	return donor, nil
}

// ParseSearch turns raw client parameters into a SearchInput, reporting every
// invalid parameter at once. Status is returned separately because only
// operators may filter on it.
func (s *DonorService) ParseSearch(raw RawSearch) (SearchInput, *domain.ApprovalStatus, error) {
	var (
		in     SearchInput
		status *domain.ApprovalStatus
	)
	details := map[string]any{}

	if strings.TrimSpace(raw.BloodGroup) != "" {
		if bg, ok := domain.ParseBloodGroup(raw.BloodGroup); ok {
			in.Filters.BloodGroup = &bg
		} else {
			details["bloodGroup"] = "Blood group must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"
		}
	}
	if city := strings.TrimSpace(raw.City); city != "" {
		if canonical, ok := s.canonicalCity(city); ok {
			in.Filters.City = &canonical
		} else {
			details["city"] = "City is not supported"
		}
	}
	if strings.TrimSpace(raw.Availability) != "" {
		if availability, ok := domain.ParseAvailability(raw.Availability); ok {
			in.Filters.Availability = &availability
		} else {
			details["availability"] = "Availability must be available or busy"
		}
	}
	if strings.TrimSpace(raw.Status) != "" {
		if st, ok := domain.ParseApprovalStatus(raw.Status); ok {
			status = &st
		} else {
			details["status"] = "Status must be pending, approved or rejected"
		}
	}
	if raw.Limit < 0 {
		details["limit"] = "Limit must not be negative"
	}
	if raw.Offset < 0 {
		details["offset"] = "Offset must not be negative"
	}
	if len(details) > 0 {
		return SearchInput{}, nil, apperrors.NewValidationError("search parameters are invalid", details)
	}

	in.Limit = raw.Limit
	in.Offset = raw.Offset
	return in, status, nil
}

// SearchPublic returns approved donors only; nothing in the input can widen
// visibility beyond that.
func (s *DonorService) SearchPublic(ctx context.Context, in SearchInput) ([]domain.Donor, error) {
	q := s.query(repository.BuildQuery(in.Filters).WithStatus(domain.ApprovalStatusApproved), in)
	key := fmt.Sprintf("%s|%d|%d", q.Predicate.Key(), q.Limit, q.Offset)
	if donors, ok := s.cache.Get(key); ok {
		return donors, nil
	}

	generation := s.cache.Generation()
	donors, err := s.run(ctx, q)
	if err != nil {
		return nil, err
	}
	visible := donors[:0]
	for i := range donors {
		if donors[i].PubliclyVisible() {
			visible = append(visible, donors[i])
		}
	}
	s.cache.Set(key, generation, visible)
	return visible, nil
}

// SearchOperator is the operator view: any status, optionally restricted.
func (s *DonorService) SearchOperator(ctx context.Context, in SearchInput, status *domain.ApprovalStatus) ([]domain.Donor, error) {
	predicate := repository.BuildQuery(in.Filters)
	if status != nil {
		predicate = predicate.WithStatus(*status)
	}
	return s.run(ctx, s.query(predicate, in))
}

// ListPending returns the approval queue.
func (s *DonorService) ListPending(ctx context.Context, limit, offset int) ([]domain.Donor, error) {
	pending := domain.ApprovalStatusPending
	return s.SearchOperator(ctx, SearchInput{Limit: limit, Offset: offset}, &pending)
}

// Decide applies an operator decision to a pending donor through a
// compare-and-set on the store. Of two racing decisions exactly one wins; the
// other gets a CONFLICT error.
func (s *DonorService) Decide(ctx context.Context, id int64, decision domain.Decision) (*domain.Donor, error) {
	target := decision.TargetStatus()

	donor, err := s.Get(ctx, id)
	if err != nil {
		s.metrics.RecordDecision(string(decision), decisionOutcome(err))
		return nil, err
	}
	if !domain.IsValidTransition(donor.Status, target) {
		s.metrics.RecordDecision(string(decision), "conflict")
		return nil, apperrors.NewConflict(
			fmt.Sprintf("donor is already %s", donor.Status),
			map[string]any{"id": id, "status": donor.Status})
	}

	decisionID := uuid.NewString()
	ambiguous := false
	_, err = withRetry(ctx, s.retry, func() (struct{}, error) {
		err := s.store.UpdateStatus(ctx, id, domain.ApprovalStatusPending, target, decisionID)
		if ambiguous && errors.Is(err, repository.ErrConflict) {
			// an earlier attempt of this decision may have committed before its reply was lost
			if current, getErr := s.store.Get(ctx, id); getErr == nil && current.DecisionID == decisionID {
				return struct{}{}, nil
			}
		}
		if errors.Is(err, repository.ErrUnavailable) {
			ambiguous = true
		}
		return struct{}{}, err
	})
	if err != nil {
		mapped := mapStoreError(err, id)
		s.metrics.RecordDecision(string(decision), decisionOutcome(mapped))
		return nil, mapped
	}

	previous := donor.Status
	donor.Status = target
	donor.DecisionID = decisionID
	s.cache.Flush()
	s.metrics.RecordDecision(string(decision), "applied")
	s.logger.Info("donor decision applied",
		zap.Int64("donor_id", id),
		zap.String("decision", string(decision)),
		zap.String("status", string(target)))

	eventType := events.EventDonorApproved
	if target == domain.ApprovalStatusRejected {
		eventType = events.EventDonorRejected
	}
	s.publish(ctx, events.NewEvent(eventType, id, events.DonorDecidedPayload{
		OldStatus:  previous,
		NewStatus:  target,
		Decision:   decision,
		DecisionID: decisionID,
	}))
	return donor, nil
}

// Delete removes a donor record. Not retried: a retry after a lost reply
// would report NOT_FOUND for a delete that succeeded.
func (s *DonorService) Delete(ctx context.Context, id int64) error {
	donor, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return mapStoreError(err, id)
	}
	s.cache.Flush()
	s.logger.Info("donor deleted", zap.Int64("donor_id", id), zap.String("status", string(donor.Status)))
	s.publish(ctx, events.NewEvent(events.EventDonorDeleted, id, events.DonorDeletedPayload{Status: donor.Status}))
	return nil
}

// Ping reports store readiness.
func (s *DonorService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Window returns the limit and offset a search with in will actually use.
func (s *DonorService) Window(in SearchInput) (limit, offset int) {
	q := s.query(repository.Predicate{}, in)
	return q.Limit, q.Offset
}

func (s *DonorService) query(predicate repository.Predicate, in SearchInput) repository.Query {
	limit := in.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	return repository.Query{Predicate: predicate, Limit: limit, Offset: in.Offset}.Normalize()
}

func (s *DonorService) run(ctx context.Context, q repository.Query) ([]domain.Donor, error) {
	start := time.Now()
	donors, err := withRetry(ctx, s.retry, func() ([]domain.Donor, error) {
		cur, err := s.store.Query(ctx, q)
		if err != nil {
			return nil, err
		}
		return repository.Collect(cur)
	})
	if err != nil {
		return nil, mapStoreError(err, 0)
	}
	s.logger.Debug("donor query",
		zap.String("predicate", q.Predicate.Key()),
		zap.Int("results", len(donors)),
		zap.Duration("elapsed", time.Since(start)))
	return donors, nil
}

func (s *DonorService) canonicalCity(city string) (string, bool) {
	if s.validator.KnownCity(city) {
		return city, true
	}
	return s.validator.MatchCity(city)
}

func (s *DonorService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("donor event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("donor_id", event.DonorID),
			zap.Error(err))
	}
}

func mapStoreError(err error, id int64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("donor", map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewDuplicateDonor(err)
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict("donor status changed concurrently", map[string]any{"id": id})
	case errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return apperrors.NewUnavailable(err)
	}
	return apperrors.NewInternalError(err)
}

func decisionOutcome(err error) string {
	switch {
	case apperrors.IsCode(err, apperrors.CodeConflict):
		return "conflict"
	case apperrors.IsCode(err, apperrors.CodeNotFound):
		return "not_found"
	}
	return "error"
}
