package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Freeeeeet/demo_booking/internal/model"
	"github.com/Freeeeeet/demo_booking/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type handler struct {
	svc    *service.Services
	logger *zap.Logger
	ready  func(ctx context.Context) error
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a uuid", service.ErrValidation, name)
	}
	return id, nil
}

func (h *handler) badJSON(w http.ResponseWriter, err error) {
	fail(w, http.StatusBadRequest, service.Kind(service.ErrValidation), "invalid json: "+err.Error())
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.Warn("Readiness check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// ===== Slots =====

func (h *handler) createSlot(w http.ResponseWriter, r *http.Request) {
	profileID, err := pathID(r, "profileID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	var req slotRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badJSON(w, err)
		return
	}

	slot, err := h.svc.Slots.Create(r.Context(), principalFromContext(r.Context()), profileID, req.toInput())
	if err != nil {
		h.failService(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (h *handler) listSlots(w http.ResponseWriter, r *http.Request) {
	profileID, err := pathID(r, "profileID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	var status *model.SlotStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := model.SlotStatus(raw)
		if !s.Valid() {
			h.failService(w, r, fmt.Errorf("%w: unknown slot status %q", service.ErrValidation, raw))
			return
		}
		status = &s
	}

	items, err := service.Collect(h.svc.Slots.List(r.Context(), profileID, status))
	if err != nil {
		h.failService(w, r, err)
		return
	}
	if items == nil {
		items = []*model.Slot{}
	}
	writeJSON(w, http.StatusOK, listResponse[*model.Slot]{Items: items})
}

func (h *handler) getSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := pathID(r, "slotID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	slot, matrix, err := h.svc.Slots.GetWithAvailability(r.Context(), slotID)
	if err != nil {
		h.failService(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slotDetailResponse{Slot: slot, Availability: matrix})
}

func (h *handler) updateSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := pathID(r, "slotID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	var req slotPatchRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badJSON(w, err)
		return
	}

	slot, err := h.svc.Slots.Update(r.Context(), principalFromContext(r.Context()), slotID, req.toPatch())
	if err != nil {
		h.failService(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *handler) setSlotStatus(w http.ResponseWriter, r *http.Request) {
	slotID, err := pathID(r, "slotID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	var req slotStatusRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badJSON(w, err)
		return
	}

	slot, err := h.svc.Slots.SetStatus(r.Context(), principalFromContext(r.Context()), slotID, req.Status)
	if err != nil {
		h.failService(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *handler) deleteSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := pathID(r, "slotID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	removed, err := h.svc.Slots.Delete(r.Context(), principalFromContext(r.Context()), slotID)
	if err != nil {
		h.failService(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "bookings_removed": removed})
}

// ===== Bookings =====

func (h *handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badJSON(w, err)
		return
	}

	res, err := h.svc.Bookings.Create(r.Context(), principalFromContext(r.Context()), service.CreateBookingRequest{
		SlotID:  req.SlotID,
		Date:    req.Date,
		Time:    req.Time,
		Subject: req.Subject,
		Contact: service.Contact{
			Name:  req.StudentName,
			Phone: req.StudentPhone,
			Email: req.StudentEmail,
		},
		SpecialRequest: req.SpecialRequest,
	})
	if err != nil {
		h.failService(w, r, err)
		return
	}

	b := res.Booking
	out := createBookingResponse{
		BookingID: b.ID,
		Status:    b.Status,
		Date:      b.Date,
		Time:      b.Time,
		Subject:   b.Subject,
		BookedAt:  b.BookedAt,
	}
	if b.Status == model.BookingStatusConfirmed {
		out.NotificationSent = &res.NotificationSent
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *handler) myBookings(w http.ResponseWriter, r *http.Request) {
	items, err := service.Collect(h.svc.Bookings.ListForRequester(r.Context(), principalFromContext(r.Context())))
	if err != nil {
		h.failService(w, r, err)
		return
	}
	if items == nil {
		items = []*model.BookingSummary{}
	}
	writeJSON(w, http.StatusOK, listResponse[*model.BookingSummary]{Items: items})
}

func (h *handler) writeSummary(w http.ResponseWriter, r *http.Request, b *model.Booking) {
	summary, err := h.svc.Bookings.Summary(r.Context(), b)
	if err != nil {
		h.failService(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *handler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	b, err := h.svc.Bookings.Cancel(r.Context(), bookingID, principalFromContext(r.Context()))
	if err != nil {
		h.failService(w, r, err)
		return
	}
	h.writeSummary(w, r, b)
}

func (h *handler) recordFeedback(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	var req feedbackRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badJSON(w, err)
		return
	}

	b, err := h.svc.Bookings.RecordFeedback(r.Context(), bookingID, principalFromContext(r.Context()), req.Feedback, req.Rating)
	if err != nil {
		h.failService(w, r, err)
		return
	}
	h.writeSummary(w, r, b)
}

func (h *handler) completeBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	b, err := h.svc.Approvals.Complete(r.Context(), bookingID, principalFromContext(r.Context()))
	if err != nil {
		h.failService(w, r, err)
		return
	}
	h.writeSummary(w, r, b)
}

func (h *handler) decideBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		h.failService(w, r, err)
		return
	}

	var req decisionRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badJSON(w, err)
		return
	}

	res, err := h.svc.Approvals.Decide(r.Context(), bookingID, principalFromContext(r.Context()), req.Decision, req.Reason)
	if err != nil {
		h.failService(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionResponse{
		BookingID:        res.Booking.ID,
		Status:           res.Booking.Status,
		NotificationSent: res.NotificationSent,
	})
}

func (h *handler) pendingForOwner(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Approvals.ListPending(r.Context(), principalFromContext(r.Context()))
	if err != nil {
		h.failService(w, r, err)
		return
	}
	if items == nil {
		items = []*model.BookingSummary{}
	}
	writeJSON(w, http.StatusOK, listResponse[*model.BookingSummary]{Items: items})
}
