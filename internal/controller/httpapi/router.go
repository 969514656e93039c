// Package httpapi exposes the booking core over HTTP+JSON.
package httpapi

import (
	"context"
	"net/http"

	"github.com/Freeeeeet/demo_booking/internal/service"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Services       *service.Services
	Logger         *zap.Logger
	AllowedOrigins []string
	// BookingLimiter throttles booking creation; nil disables it.
	BookingLimiter Limiter
	// Ready backs /readyz; nil reports ready.
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	h := &handler{svc: d.Services, logger: d.Logger, ready: d.Ready}

	r := chi.NewRouter()
	r.Use(withRequestID)
	r.Use(withAccessLog(d.Logger))
	r.Use(corsHandler(d.AllowedOrigins))

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	// Public catalog
	r.Get("/v1/profiles/{profileID}/slots", h.listSlots)
	r.Get("/v1/slots/{slotID}", h.getSlot)

	r.Group(func(pr chi.Router) {
		pr.Use(withPrincipal)

		// ===== Slot management (owner) =====
		pr.Post("/v1/profiles/{profileID}/slots", h.createSlot)
		pr.Patch("/v1/slots/{slotID}", h.updateSlot)
		pr.Post("/v1/slots/{slotID}/status", h.setSlotStatus)
		pr.Delete("/v1/slots/{slotID}", h.deleteSlot)

		// ===== Bookings (requester) =====
		pr.With(rateLimit(d.BookingLimiter, d.Logger)).Post("/v1/bookings", h.createBooking)
		pr.Get("/v1/bookings/mine", h.myBookings)
		pr.Post("/v1/bookings/{bookingID}/cancel", h.cancelBooking)
		pr.Post("/v1/bookings/{bookingID}/feedback", h.recordFeedback)
		pr.Post("/v1/bookings/{bookingID}/complete", h.completeBooking)

		// ===== Approvals (owner) =====
		pr.Post("/v1/bookings/{bookingID}/decision", h.decideBooking)
		pr.Get("/v1/owner/bookings/pending", h.pendingForOwner)
	})

	return otelhttp.NewHandler(r, "demo-booking")
}
