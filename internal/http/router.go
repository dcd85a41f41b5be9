package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig collects the handlers and middleware mounted by NewRouter.
// Nil handlers leave their routes unregistered.
type RouterConfig struct {
	Events       *EventHandler
	Bulk         *BulkHandler
	Availability *AvailabilityHandler
	Appointments *AppointmentHandler
	Integrations *IntegrationHandler
	Shares       *ShareHandler
	Middleware   []mux.MiddlewareFunc
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	for _, middleware := range cfg.Middleware {
		if middleware != nil {
			router.Use(middleware)
		}
	}

	if cfg.Events != nil {
		router.HandleFunc("/events", cfg.Events.List).Methods(http.MethodGet)
		router.HandleFunc("/events", cfg.Events.Create).Methods(http.MethodPost)
		router.HandleFunc("/events/conflict-check", cfg.Events.CheckConflicts).Methods(http.MethodPost)
		router.HandleFunc("/events/slot-suggestions", cfg.Events.SuggestSlots).Methods(http.MethodPost)
		router.HandleFunc("/events/{id}", cfg.Events.Get).Methods(http.MethodGet)
		router.HandleFunc("/events/{id}", cfg.Events.Update).Methods(http.MethodPut)
		router.HandleFunc("/events/{id}", cfg.Events.Cancel).Methods(http.MethodDelete)
	}

	if cfg.Bulk != nil {
		router.HandleFunc("/events/bulk/reschedule", cfg.Bulk.Reschedule).Methods(http.MethodPost)
		router.HandleFunc("/events/bulk/update", cfg.Bulk.Update).Methods(http.MethodPost)
	}

	if cfg.Availability != nil {
		router.HandleFunc("/availability/windows", cfg.Availability.ListWindows).Methods(http.MethodGet)
		router.HandleFunc("/availability/windows", cfg.Availability.CreateWindow).Methods(http.MethodPost)
		router.HandleFunc("/availability/windows/{id}", cfg.Availability.UpdateWindow).Methods(http.MethodPut)
		router.HandleFunc("/availability/windows/{id}", cfg.Availability.DeleteWindow).Methods(http.MethodDelete)
		router.HandleFunc("/availability/exceptions", cfg.Availability.ListExceptions).Methods(http.MethodGet)
		router.HandleFunc("/availability/exceptions", cfg.Availability.CreateException).Methods(http.MethodPost)
		router.HandleFunc("/availability/exceptions/{id}", cfg.Availability.DeleteException).Methods(http.MethodDelete)
		router.HandleFunc("/availability/resolve", cfg.Availability.ResolveDay).Methods(http.MethodGet)
	}

	if cfg.Appointments != nil {
		router.HandleFunc("/appointments", cfg.Appointments.List).Methods(http.MethodGet)
		router.HandleFunc("/appointments", cfg.Appointments.Create).Methods(http.MethodPost)
		router.HandleFunc("/appointments/{id}", cfg.Appointments.Get).Methods(http.MethodGet)
		router.HandleFunc("/appointments/{id}/approve", cfg.Appointments.Approve).Methods(http.MethodPost)
		router.HandleFunc("/appointments/{id}/reject", cfg.Appointments.Reject).Methods(http.MethodPost)
		router.HandleFunc("/appointments/{id}/cancel", cfg.Appointments.Cancel).Methods(http.MethodPost)
		router.HandleFunc("/appointments/{id}/reschedule", cfg.Appointments.Reschedule).Methods(http.MethodPost)
	}

	if cfg.Integrations != nil {
		router.HandleFunc("/integrations", cfg.Integrations.List).Methods(http.MethodGet)
		router.HandleFunc("/integrations", cfg.Integrations.Connect).Methods(http.MethodPost)
		router.HandleFunc("/integrations/{id}", cfg.Integrations.Get).Methods(http.MethodGet)
		router.HandleFunc("/integrations/{id}", cfg.Integrations.Disconnect).Methods(http.MethodDelete)
		router.HandleFunc("/integrations/{id}/sync", cfg.Integrations.Sync).Methods(http.MethodPost)
	}

	if cfg.Shares != nil {
		router.HandleFunc("/shares", cfg.Shares.List).Methods(http.MethodGet)
		router.HandleFunc("/shares", cfg.Shares.Create).Methods(http.MethodPost)
		router.HandleFunc("/shares/{id}", cfg.Shares.Update).Methods(http.MethodPut)
		router.HandleFunc("/shares/{id}", cfg.Shares.Revoke).Methods(http.MethodDelete)
	}

	return router
}
