package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/Freeeeeet/demo_booking/internal/repository/base"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookingSelect = `
	SELECT id, requester_id, slot_id, booking_date, time_label, subject,
	       student_name, student_phone, student_email, special_request,
	       status, rejection_reason, feedback, rating, booked_at, updated_at
	FROM demo_bookings
`

var bookingSummaryColumns = []any{
	"b.id", "b.requester_id", "b.slot_id", "b.booking_date", "b.time_label", "b.subject",
	"b.student_name", "b.student_phone", "b.student_email", "b.special_request",
	"b.status", "b.rejection_reason", "b.feedback", "b.rating", "b.booked_at", "b.updated_at",
	goqu.I("s.title").As("slot_title"),
	goqu.I("p.name").As("profile_name"),
	goqu.I("c.name").As("organization_name"),
}

type BookingRepository struct {
	*base.Repository
}

func NewBookingRepository(db base.Querier) *BookingRepository {
	return &BookingRepository{Repository: base.NewRepository(db)}
}

// activeStatuses is model.ActiveBookingStatuses as a text[] parameter.
func activeStatuses() []string {
	out := make([]string, len(model.ActiveBookingStatuses))
	for i, st := range model.ActiveBookingStatuses {
		out[i] = string(st)
	}
	return out
}

func bookingFields(b *model.Booking) []any {
	return []any{
		&b.ID,
		&b.RequesterID,
		&b.SlotID,
		&b.Date,
		&b.Time,
		&b.Subject,
		&b.StudentName,
		&b.StudentPhone,
		&b.StudentEmail,
		&b.SpecialRequest,
		&b.Status,
		&b.RejectionReason,
		&b.Feedback,
		&b.Rating,
		&b.BookedAt,
		&b.UpdatedAt,
	}
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var booking model.Booking
	if err := row.Scan(bookingFields(&booking)...); err != nil {
		return nil, err
	}
	return &booking, nil
}

func scanBookingSummaries(rows pgx.Rows) ([]*model.BookingSummary, error) {
	defer rows.Close()

	var out []*model.BookingSummary
	for rows.Next() {
		var s model.BookingSummary
		dest := append(bookingFields(&s.Booking), &s.SlotTitle, &s.ProfileName, &s.OrganizationName)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan booking summary: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// Create inserts a new booking. A second active booking for the same
// requester and slot is reported as repository.ErrDuplicateActiveBooking.
func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	query := `
		INSERT INTO demo_bookings (
			id, requester_id, slot_id, booking_date, time_label, subject,
			student_name, student_phone, student_email, special_request, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING booked_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.ID,
		booking.RequesterID,
		booking.SlotID,
		booking.Date,
		booking.Time,
		booking.Subject,
		booking.StudentName,
		booking.StudentPhone,
		booking.StudentEmail,
		booking.SpecialRequest,
		booking.Status,
	).Scan(&booking.BookedAt, &booking.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err, activeBookingIndex) {
			return repository.ErrDuplicateActiveBooking
		}
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := scanBooking(r.QueryRow(ctx, bookingSelect+` WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	booking, err := scanBooking(r.QueryRow(ctx, bookingSelect+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get booking for update: %w", err)
	}
	return booking, nil
}

func (r *BookingRepository) GetActiveByRequesterAndSlot(ctx context.Context, requesterID, slotID uuid.UUID) (*model.Booking, error) {
	query := bookingSelect + `
		WHERE requester_id = $1 AND slot_id = $2 AND status = ANY($3)
		LIMIT 1
	`
	booking, err := scanBooking(r.QueryRow(ctx, query, requesterID, slotID, activeStatuses()))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active booking: %w", err)
	}
	return booking, nil
}

// CountActive counts pending and confirmed bookings on one (date, time) pair.
func (r *BookingRepository) CountActive(ctx context.Context, slotID uuid.UUID, date, timeLabel string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM demo_bookings
		WHERE slot_id = $1
		  AND booking_date = $2
		  AND time_label = $3
		  AND status = ANY($4)
	`

	var count int
	if err := r.QueryRow(ctx, query, slotID, date, timeLabel, activeStatuses()).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return count, nil
}

// Update persists the mutable part of a booking: status and the outcome fields.
func (r *BookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	query := `
		UPDATE demo_bookings
		SET status = $2, rejection_reason = $3, feedback = $4, rating = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		booking.ID,
		booking.Status,
		booking.RejectionReason,
		booking.Feedback,
		booking.Rating,
	).Scan(&booking.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update booking %s: not found", booking.ID)
		}
		if isUniqueViolation(err, activeBookingIndex) {
			return repository.ErrDuplicateActiveBooking
		}
		return fmt.Errorf("update booking: %w", err)
	}

	return nil
}

func (r *BookingRepository) DeleteBySlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	n, err := r.ExecAffected(ctx, `DELETE FROM demo_bookings WHERE slot_id = $1`, slotID)
	if err != nil {
		return 0, fmt.Errorf("delete bookings by slot: %w", err)
	}
	return n, nil
}

func summaryDataset() *goqu.SelectDataset {
	return dialect.From(goqu.T("demo_bookings").As("b")).
		Join(goqu.T("demo_slots").As("s"), goqu.On(goqu.I("s.id").Eq(goqu.I("b.slot_id")))).
		Join(goqu.T("profiles").As("p"), goqu.On(goqu.I("p.id").Eq(goqu.I("s.profile_id")))).
		Join(goqu.T("coachings").As("c"), goqu.On(goqu.I("c.id").Eq(goqu.I("p.coaching_id")))).
		Select(bookingSummaryColumns...).
		Prepared(true)
}

func listByRequesterQuery(requesterID uuid.UUID, page repository.Page) *goqu.SelectDataset {
	ds := summaryDataset().Where(goqu.I("b.requester_id").Eq(requesterID.String()))
	if page.After != nil {
		ds = ds.Where(keysetBefore("b.booked_at", "b.id", page.After))
	}
	return ds.Order(goqu.I("b.booked_at").Desc(), goqu.I("b.id").Desc()).Limit(uint(page.Size()))
}

func listPendingByOwnerQuery(ownerID uuid.UUID) *goqu.SelectDataset {
	return summaryDataset().
		Where(
			goqu.I("c.owner_id").Eq(ownerID.String()),
			goqu.I("b.status").Eq(string(model.BookingStatusPending)),
		).
		Order(goqu.I("b.booked_at").Asc(), goqu.I("b.id").Asc())
}

func (r *BookingRepository) listSummaries(ctx context.Context, ds *goqu.SelectDataset) ([]*model.BookingSummary, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build booking summary query: %w", err)
	}
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanBookingSummaries(rows)
}

// ListByRequester returns one page of the requester's bookings, newest first.
func (r *BookingRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID, page repository.Page) ([]*model.BookingSummary, error) {
	out, err := r.listSummaries(ctx, listByRequesterQuery(requesterID, page))
	if err != nil {
		return nil, fmt.Errorf("list bookings by requester: %w", err)
	}
	return out, nil
}

// ListPendingByOwner returns every pending booking across the owner's
// coaching entities, oldest first.
func (r *BookingRepository) ListPendingByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.BookingSummary, error) {
	out, err := r.listSummaries(ctx, listPendingByOwnerQuery(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list pending bookings by owner: %w", err)
	}
	return out, nil
}
