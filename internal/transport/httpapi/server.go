// Package httpapi exposes the scheduling engine over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/Leganyst/clinic-scheduling/internal/service"
)

// ReconcileFunc runs one reconciliation sweep on demand. A nil report
// means the sweep was skipped because another replica holds the lock.
type ReconcileFunc func(ctx context.Context) (*service.ReconcileReport, error)

// Services are the use cases the API serves.
type Services struct {
	Scheduling *service.SchedulingService
	Billing    *service.BillingService
	Patients   *service.PatientService
	Clinicians *service.ClinicianService
	Reconcile  ReconcileFunc
}

type Handler struct {
	svc Services
}

// New builds the echo instance with middleware and every route registered.
func New(svc Services, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(requestLogger(log))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h := &Handler{svc: svc}
	h.RegisterRoutes(e.Group("/api/v1"))
	return e
}

// RegisterRoutes registers the API routes on g.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/patients", h.RegisterPatient)
	g.GET("/patients/:id", h.GetPatient)
	g.DELETE("/patients/:id", h.DeletePatient)
	g.GET("/patients/:id/appointments", h.ListPatientAppointments)
	g.GET("/patients/:id/cycle", h.CycleStatus)
	g.POST("/patients/:id/package", h.SetupPackage)
	g.POST("/patients/:id/allowance/settle", h.SettleAllowance)

	g.POST("/clinicians", h.RegisterClinician)
	g.GET("/clinicians", h.ListClinicians)
	g.GET("/clinicians/:id", h.GetClinician)
	g.GET("/clinicians/:id/slots", h.ResolveSlots)
	g.GET("/clinicians/:id/availability", h.ListAvailability)
	g.PUT("/clinicians/:id/availability/:date", h.SetAvailability)
	g.POST("/clinicians/:id/availability/weekly", h.ApplyWeeklyTemplate)
	g.POST("/clinicians/:id/bulk-cancel", h.BulkCancel)

	g.POST("/appointments/eligibility", h.CheckEligibility)
	g.POST("/appointments", h.ConfirmBooking)
	g.POST("/appointments/:id/start", h.StartAppointment)
	g.POST("/appointments/:id/complete", h.CompleteAppointment)
	g.POST("/appointments/:id/cancel", h.CancelAppointment)
	g.DELETE("/appointments/:id", h.DeleteAppointment)

	g.POST("/billing/:id/payments", h.RecordPayment)
	g.POST("/admin/reconcile", h.Reconcile)
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			evt := log.Info()
			if c.Response().Status >= http.StatusInternalServerError {
				evt = log.Error().Err(err)
			}
			evt.
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("request")
			return nil
		}
	}
}
