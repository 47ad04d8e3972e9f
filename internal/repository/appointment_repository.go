package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clube-quinze/club-api/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// MaxPage keeps Page*Size within int32 so the offset never overflows.
const MaxPage = math.MaxInt32 / MaxPageSize

// AppointmentFilter captures search parameters. Nil fields are not applied.
type AppointmentFilter struct {
	Status   *domain.AppointmentStatus
	ClientID *int64
	From     *time.Time
	To       *time.Time
	Page     int
	Size     int
}

// Normalize applies pagination defaults and bounds.
func (f AppointmentFilter) Normalize() AppointmentFilter {
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.Size <= 0 {
		f.Size = DefaultPageSize
	}
	if f.Size > MaxPageSize {
		f.Size = MaxPageSize
	}
	return f
}

// AppointmentPage is one page of a search ordered by scheduled instant.
type AppointmentPage struct {
	Items         []domain.Appointment
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

// NewAppointmentPage computes page totals.
func NewAppointmentPage(items []domain.Appointment, page, size int, total int64) AppointmentPage {
	pages := 0
	if size > 0 {
		pages = int(total / int64(size))
		if total%int64(size) > 0 {
			pages++
		}
	}
	if items == nil {
		items = []domain.Appointment{}
	}
	return AppointmentPage{Items: items, Page: page, Size: size, TotalElements: total, TotalPages: pages}
}

// AppointmentRepository encapsulates appointment persistence.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *domain.Appointment) error
	Update(ctx context.Context, appointment *domain.Appointment) error
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	// ListByScheduledAtRange returns appointments with start <= scheduled_at < end.
	ListByScheduledAtRange(ctx context.Context, start, end time.Time) ([]domain.Appointment, error)
	// ExistsAtInstant reports whether any appointment other than excludeID occupies at.
	ExistsAtInstant(ctx context.Context, at time.Time, excludeID *int64) (bool, error)
	Search(ctx context.Context, filter AppointmentFilter) (AppointmentPage, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository instantiates repository.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

const appointmentColumns = `id, client_id, scheduled_at, tier, status, service_type, notes,
               duration_minutes, created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *domain.Appointment) error {
	const query = `
        INSERT INTO appointments (client_id, scheduled_at, tier, status, service_type, notes, duration_minutes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		appointment.ClientID,
		appointment.ScheduledAt,
		appointment.Tier,
		appointment.Status,
		appointment.ServiceType,
		appointment.Notes,
		appointment.DurationMinutes,
	).Scan(&appointment.ID, &appointment.CreatedAt, &appointment.UpdatedAt)
	return translateSlotErr(err)
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *domain.Appointment) error {
	const query = `
        UPDATE appointments SET scheduled_at=$1, tier=$2, status=$3, service_type=$4, notes=$5,
            duration_minutes=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		appointment.ScheduledAt,
		appointment.Tier,
		appointment.Status,
		appointment.ServiceType,
		appointment.Notes,
		appointment.DurationMinutes,
		appointment.ID,
	).Scan(&appointment.UpdatedAt)
	return translateSlotErr(err)
}

func (r *appointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id=$1`
	appointment, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (r *appointmentRepository) ListByScheduledAtRange(ctx context.Context, start, end time.Time) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
             FROM appointments
             WHERE scheduled_at >= $1 AND scheduled_at < $2
             ORDER BY scheduled_at ASC`
	rows, err := r.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *appointmentRepository) ExistsAtInstant(ctx context.Context, at time.Time, excludeID *int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM appointments WHERE scheduled_at=$1)`
	args := []any{at}
	if excludeID != nil {
		query = `SELECT EXISTS (SELECT 1 FROM appointments WHERE scheduled_at=$1 AND id<>$2)`
		args = append(args, *excludeID)
	}
	var exists bool
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *appointmentRepository) Search(ctx context.Context, filter AppointmentFilter) (AppointmentPage, error) {
	filter = filter.Normalize()

	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		clauses = append(clauses, fmt.Sprintf("client_id=$%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("scheduled_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("scheduled_at <= $%d", len(args)))
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE `+where, args...).Scan(&total); err != nil {
		return AppointmentPage{}, err
	}

	args = append(args, filter.Size, filter.Page*filter.Size)
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE %s ORDER BY scheduled_at ASC, id ASC LIMIT $%d OFFSET $%d`,
		appointmentColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return AppointmentPage{}, err
	}
	items, err := collectAppointments(rows)
	if err != nil {
		return AppointmentPage{}, err
	}
	return NewAppointmentPage(items, filter.Page, filter.Size, total), nil
}

func scanAppointment(row pgx.Row) (domain.Appointment, error) {
	var appointment domain.Appointment
	err := row.Scan(
		&appointment.ID,
		&appointment.ClientID,
		&appointment.ScheduledAt,
		&appointment.Tier,
		&appointment.Status,
		&appointment.ServiceType,
		&appointment.Notes,
		&appointment.DurationMinutes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	return appointment, err
}

func collectAppointments(rows pgx.Rows) ([]domain.Appointment, error) {
	defer rows.Close()
	var appointments []domain.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, rows.Err()
}
