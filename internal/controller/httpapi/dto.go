package httpapi

import (
	"time"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/service"
	"github.com/google/uuid"
)

type slotRequest struct {
	CourseID    uuid.UUID          `json:"course_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Instructor  string             `json:"instructor"`
	Subjects    []string           `json:"subjects"`
	Topics      []string           `json:"topics"`
	Mode        model.DeliveryMode `json:"mode"`
	Address     string             `json:"address"`
	Landmark    string             `json:"landmark"`
	MeetingLink string             `json:"meeting_link"`
	Dates       []string           `json:"dates"`
	TimeSlots   []string           `json:"time_slots"`
	Capacity    int                `json:"capacity"`
	IsFree      bool               `json:"is_free"`
	Price       int64              `json:"price"`
	AutoConfirm bool               `json:"auto_confirm"`
}

func (r slotRequest) toInput() service.SlotInput {
	return service.SlotInput{
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		Instructor:  r.Instructor,
		Subjects:    r.Subjects,
		Topics:      r.Topics,
		Mode:        r.Mode,
		Address:     r.Address,
		Landmark:    r.Landmark,
		MeetingLink: r.MeetingLink,
		Dates:       r.Dates,
		TimeSlots:   r.TimeSlots,
		Capacity:    r.Capacity,
		IsFree:      r.IsFree,
		Price:       r.Price,
		AutoConfirm: r.AutoConfirm,
	}
}

type slotPatchRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Instructor  *string             `json:"instructor"`
	Subjects    []string            `json:"subjects"`
	Topics      []string            `json:"topics"`
	Mode        *model.DeliveryMode `json:"mode"`
	Address     *string             `json:"address"`
	Landmark    *string             `json:"landmark"`
	MeetingLink *string             `json:"meeting_link"`
	Dates       []string            `json:"dates"`
	TimeSlots   []string            `json:"time_slots"`
	Capacity    *int                `json:"capacity"`
	IsFree      *bool               `json:"is_free"`
	Price       *int64              `json:"price"`
	AutoConfirm *bool               `json:"auto_confirm"`
}

func (r slotPatchRequest) toPatch() service.SlotPatch {
	return service.SlotPatch{
		Title:       r.Title,
		Description: r.Description,
		Instructor:  r.Instructor,
		Subjects:    r.Subjects,
		Topics:      r.Topics,
		Mode:        r.Mode,
		Address:     r.Address,
		Landmark:    r.Landmark,
		MeetingLink: r.MeetingLink,
		Dates:       r.Dates,
		TimeSlots:   r.TimeSlots,
		Capacity:    r.Capacity,
		IsFree:      r.IsFree,
		Price:       r.Price,
		AutoConfirm: r.AutoConfirm,
	}
}

type slotStatusRequest struct {
	Status model.SlotStatus `json:"status"`
}

type slotDetailResponse struct {
	*model.Slot
	Availability []service.PairAvailability `json:"availability"`
}

type createBookingRequest struct {
	SlotID         uuid.UUID `json:"slot_id"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	Subject        string    `json:"subject"`
	StudentName    string    `json:"student_name"`
	StudentPhone   string    `json:"student_phone"`
	StudentEmail   string    `json:"student_email"`
	SpecialRequest string    `json:"special_request"`
}

type createBookingResponse struct {
	BookingID        uuid.UUID           `json:"booking_id"`
	Status           model.BookingStatus `json:"status"`
	Date             string              `json:"date"`
	Time             string              `json:"time"`
	Subject          string              `json:"subject"`
	BookedAt         time.Time           `json:"booked_at"`
	NotificationSent *bool               `json:"notification_sent,omitempty"`
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
	Rating   int    `json:"rating"`
}

type decisionRequest struct {
	Decision service.Decision `json:"decision"`
	Reason   string           `json:"reason"`
}

type decisionResponse struct {
	BookingID        uuid.UUID           `json:"booking_id"`
	Status           model.BookingStatus `json:"status"`
	NotificationSent bool                `json:"notification_sent"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}
