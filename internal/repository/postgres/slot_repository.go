package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/repository"
	"github.com/Freeeeeet/demo_booking/internal/repository/base"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // registers $n placeholders
	"github.com/google/uuid"
)

var dialect = goqu.Dialect("postgres")

var slotColumns = []any{
	"id", "code", "profile_id", "course_id", "title", "description", "instructor",
	"subjects", "topics", "mode", "address", "landmark", "meeting_link",
	"dates", "time_slots", "capacity", "status", "is_free", "price", "auto_confirm",
	"created_at", "updated_at",
}

const slotSelect = `
	SELECT id, code, profile_id, course_id, title, description, instructor,
	       subjects, topics, mode, address, landmark, meeting_link,
	       dates, time_slots, capacity, status, is_free, price, auto_confirm,
	       created_at, updated_at
	FROM demo_slots
`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(db base.Querier) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(db)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlot(row rowScanner) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.Code,
		&slot.ProfileID,
		&slot.CourseID,
		&slot.Title,
		&slot.Description,
		&slot.Instructor,
		&slot.Subjects,
		&slot.Topics,
		&slot.Mode,
		&slot.Address,
		&slot.Landmark,
		&slot.MeetingLink,
		&slot.Dates,
		&slot.TimeSlots,
		&slot.Capacity,
		&slot.Status,
		&slot.IsFree,
		&slot.Price,
		&slot.AutoConfirm,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create inserts the slot and fills the server-generated timestamps.
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	query := `
		INSERT INTO demo_slots (
			id, code, profile_id, course_id, title, description, instructor,
			subjects, topics, mode, address, landmark, meeting_link,
			dates, time_slots, capacity, status, is_free, price, auto_confirm
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.ID,
		slot.Code,
		slot.ProfileID,
		slot.CourseID,
		slot.Title,
		slot.Description,
		slot.Instructor,
		slot.Subjects,
		slot.Topics,
		slot.Mode,
		slot.Address,
		slot.Landmark,
		slot.MeetingLink,
		slot.Dates,
		slot.TimeSlots,
		slot.Capacity,
		slot.Status,
		slot.IsFree,
		slot.Price,
		slot.AutoConfirm,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	slot, err := scanSlot(r.QueryRow(ctx, slotSelect+` WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}
	return slot, nil
}

// GetByIDForUpdate serialises every capacity decision on this slot behind the row lock.
func (r *SlotRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	slot, err := scanSlot(r.QueryRow(ctx, slotSelect+` WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot for update: %w", err)
	}
	return slot, nil
}

func (r *SlotRepository) Update(ctx context.Context, slot *model.Slot) error {
	query := `
		UPDATE demo_slots
		SET title = $2, description = $3, instructor = $4, subjects = $5, topics = $6,
		    mode = $7, address = $8, landmark = $9, meeting_link = $10,
		    dates = $11, time_slots = $12, capacity = $13, status = $14,
		    is_free = $15, price = $16, auto_confirm = $17, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.ID,
		slot.Title,
		slot.Description,
		slot.Instructor,
		slot.Subjects,
		slot.Topics,
		slot.Mode,
		slot.Address,
		slot.Landmark,
		slot.MeetingLink,
		slot.Dates,
		slot.TimeSlots,
		slot.Capacity,
		slot.Status,
		slot.IsFree,
		slot.Price,
		slot.AutoConfirm,
	).Scan(&slot.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("update slot %s: not found", slot.ID)
		}
		return fmt.Errorf("update slot: %w", err)
	}

	return nil
}

func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.ExecAffected(ctx, `DELETE FROM demo_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// ListByProfile returns one page of the profile's slots, newest first.
func (r *SlotRepository) ListByProfile(
	ctx context.Context,
	profileID uuid.UUID,
	status *model.SlotStatus,
	page repository.Page,
) ([]*model.Slot, error) {
	query, args, err := listByProfileQuery(profileID, status, page).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list slots query: %w", err)
	}

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots by profile: %w", err)
	}
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

func listByProfileQuery(profileID uuid.UUID, status *model.SlotStatus, page repository.Page) *goqu.SelectDataset {
	ds := dialect.From("demo_slots").
		Select(slotColumns...).
		Where(goqu.C("profile_id").Eq(profileID.String()))
	if status != nil {
		ds = ds.Where(goqu.C("status").Eq(string(*status)))
	}
	if page.After != nil {
		ds = ds.Where(keysetBefore("created_at", "id", page.After))
	}
	return ds.
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc()).
		Limit(uint(page.Size())).
		Prepared(true)
}

// keysetBefore matches rows strictly after the cursor in (ts DESC, id DESC) order.
func keysetBefore(tsCol, idCol string, c *repository.Cursor) goqu.Expression {
	return goqu.Or(
		goqu.I(tsCol).Lt(c.CreatedAt),
		goqu.And(
			goqu.I(tsCol).Eq(c.CreatedAt),
			goqu.I(idCol).Lt(c.ID.String()),
		),
	)
}
