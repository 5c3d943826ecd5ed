package repository

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

var (
	ErrDuplicate   = errors.New("donor with this email and phone already registered")
	ErrNotFound    = errors.New("donor not found")
	ErrConflict    = errors.New("donor status changed concurrently")
	ErrUnavailable = errors.New("donor store unavailable")
)

//go:generate mockgen -source=donor_repository.go -destination=mocks/mock_donor_repository.go -package=mocks DonorRepository

// DonorRepository encapsulates donor persistence.
type DonorRepository interface {
	// Insert stores a new donor and sets its ID and CreatedAt.
	Insert(ctx context.Context, donor *domain.Donor) error
	Get(ctx context.Context, id int64) (*domain.Donor, error)
	Query(ctx context.Context, q Query) (DonorCursor, error)
	// UpdateStatus moves a donor from expected to next atomically and records
	// decisionID with the new status.
	UpdateStatus(ctx context.Context, id int64, expected, next domain.ApprovalStatus, decisionID string) error
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

const donorColumns = `id, full_name, email, phone, age, blood_group, city, address, emergency_contact,
       medical_conditions, agree_to_terms, available_for_emergency, status, decision_id, created_at`

type donorRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewDonorRepository instantiates the Postgres-backed repository.
func NewDonorRepository(pool *pgxpool.Pool) DonorRepository {
	return &donorRepository{pool: pool, tracer: otel.Tracer("bloodshare/repository")}
}

func (r *donorRepository) Insert(ctx context.Context, donor *domain.Donor) error {
	ctx, span := r.tracer.Start(ctx, "donors.insert",
		trace.WithAttributes(attribute.String("donor.blood_group", string(donor.BloodGroup))))
	defer span.End()

	const query = `
        INSERT INTO donors (full_name, email, phone, age, blood_group, city, address, emergency_contact,
            medical_conditions, agree_to_terms, available_for_emergency, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		donor.FullName,
		donor.Email,
		donor.Phone,
		donor.Age,
		string(donor.BloodGroup),
		donor.City,
		donor.Address,
		donor.EmergencyContact,
		donor.MedicalConditions,
		donor.AgreeToTerms,
		donor.AvailableForEmergency,
		string(donor.Status),
	).Scan(&donor.ID, &donor.CreatedAt)
	if err != nil {
		return recordErr(span, classify(err))
	}
	span.SetAttributes(attribute.Int64("donor.id", donor.ID))
	return nil
}

func (r *donorRepository) Get(ctx context.Context, id int64) (*domain.Donor, error) {
	ctx, span := r.tracer.Start(ctx, "donors.get", trace.WithAttributes(attribute.Int64("donor.id", id)))
	defer span.End()

	query := `SELECT ` + donorColumns + ` FROM donors WHERE id=$1`
	donor, err := scanDonor(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, recordErr(span, classify(err))
	}
	return donor, nil
}

func (r *donorRepository) Query(ctx context.Context, q Query) (DonorCursor, error) {
	q = q.Normalize()
	ctx, span := r.tracer.Start(ctx, "donors.query",
		trace.WithAttributes(
			attribute.Int("query.conditions", len(q.Predicate.conditions)),
			attribute.Int("query.limit", q.Limit),
			attribute.Int("query.offset", q.Offset),
		))
	defer span.End()

	where, args := q.Predicate.SQL(0)
	args = append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(`SELECT %s FROM donors %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		donorColumns, where, OrderBy, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, recordErr(span, classify(err))
	}
	return &rowsCursor{rows: rows}, nil
}

func (r *donorRepository) UpdateStatus(ctx context.Context, id int64, expected, next domain.ApprovalStatus, decisionID string) error {
	ctx, span := r.tracer.Start(ctx, "donors.update_status",
		trace.WithAttributes(
			attribute.Int64("donor.id", id),
			attribute.String("status.expected", string(expected)),
			attribute.String("status.next", string(next)),
		))
	defer span.End()

	const update = `UPDATE donors SET status=$1, decision_id=$4 WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, update, string(next), id, string(expected), decisionID)
	if err != nil {
		return recordErr(span, classify(err))
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}

	var current string
	if err := r.pool.QueryRow(ctx, `SELECT status FROM donors WHERE id=$1`, id).Scan(&current); err != nil {
		return recordErr(span, classify(err))
	}
	span.SetAttributes(attribute.String("status.actual", current), attribute.Bool("conflict.detected", true))
	return ErrConflict
}

func (r *donorRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "donors.delete", trace.WithAttributes(attribute.Int64("donor.id", id)))
	defer span.End()

	cmd, err := r.pool.Exec(ctx, `DELETE FROM donors WHERE id=$1`, id)
	if err != nil {
		return recordErr(span, classify(err))
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *donorRepository) Ping(ctx context.Context) error {
	if r.pool == nil {
		return ErrUnavailable
	}
	return classify(r.pool.Ping(ctx))
}

func scanDonor(row pgx.Row) (*domain.Donor, error) {
	var (
		donor      domain.Donor
		bloodGroup string
		status     string
	)
	if err := row.Scan(
		&donor.ID,
		&donor.FullName,
		&donor.Email,
		&donor.Phone,
		&donor.Age,
		&bloodGroup,
		&donor.City,
		&donor.Address,
		&donor.EmergencyContact,
		&donor.MedicalConditions,
		&donor.AgreeToTerms,
		&donor.AvailableForEmergency,
		&status,
		&donor.DecisionID,
		&donor.CreatedAt,
	); err != nil {
		return nil, err
	}
	donor.BloodGroup = domain.BloodGroup(bloodGroup)
	donor.Status = domain.ApprovalStatus(status)
	return &donor, nil
}

// classify maps driver errors onto the repository sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505":
			return ErrDuplicate
		case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08", // connection exception
			pgErr.Code == "53300", // too_many_connections
			pgErr.Code == "57P01", // admin_shutdown
			pgErr.Code == "57P03": // cannot_connect_now
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connectErr) ||
		errors.As(err, &netErr) ||
		pgconn.Timeout(err) ||
		pgconn.SafeToRetry(err) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func recordErr(span trace.Span, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrConflict) {
		span.SetAttributes(attribute.String("donor.outcome", err.Error()))
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
