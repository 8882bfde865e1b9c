package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/calendar"
	"github.com/Leganyst/clinic-scheduling/internal/logging"
	"github.com/Leganyst/clinic-scheduling/internal/model"
	"github.com/Leganyst/clinic-scheduling/internal/notify"
	"github.com/Leganyst/clinic-scheduling/internal/repository"
)

// ClinicianService keeps the clinician registry and their availability.
type ClinicianService struct {
	deps
}

func NewClinicianService(
	store *repository.Store,
	cfg Config,
	notifier notify.Notifier,
	log zerolog.Logger,
) *ClinicianService {
	return &ClinicianService{deps: newDeps(store, cfg, notifier, log)}
}

type NewClinician struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

func (s *ClinicianService) RegisterClinician(ctx context.Context, in NewClinician) (*model.Clinician, error) {
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return nil, apperrors.InvalidState("clinician name is required")
	}
	c := model.Clinician{DisplayName: name, Email: strings.TrimSpace(in.Email), Phone: in.Phone}
	if err := s.store.Clinicians.Create(ctx, &c); err != nil {
		return nil, translate("create clinician", "clinician", err)
	}
	return &c, nil
}

func (s *ClinicianService) GetClinician(ctx context.Context, id uuid.UUID) (*model.Clinician, error) {
	c, err := s.store.Clinicians.GetByID(ctx, id)
	if err != nil {
		return nil, translate("load clinician", "clinician", err)
	}
	return c, nil
}

func (s *ClinicianService) ListClinicians(ctx context.Context, page, size int) (calendar.Page[model.Clinician], error) {
	page, size = calendar.NormalizePage(page, size)
	items, total, err := s.store.Clinicians.List(ctx, size, (page-1)*size)
	if err != nil {
		return calendar.Page[model.Clinician]{}, translate("list clinicians", "clinicians", err)
	}
	return calendar.NewPage(items, page, size, int(total)), nil
}

// SetAvailability replaces the clinician's windows for one date.
func (s *ClinicianService) SetAvailability(
	ctx context.Context,
	clinicianID uuid.UUID,
	date time.Time,
	enabled bool,
	windows []model.TimeWindow,
) (_ *model.ClinicianAvailability, err error) {
	ctx, span := logging.StartSpan(ctx, "ClinicianService.SetAvailability",
		attribute.String("clinician_id", clinicianID.String()))
	defer func() { logging.EndSpan(span, err) }()

	for _, w := range windows {
		if !calendar.ValidWindow(w) {
			return nil, apperrors.InvalidState("invalid window %s-%s",
				calendar.MinuteOfDay(w.Start), calendar.MinuteOfDay(w.End))
		}
	}
	if _, err := s.store.Clinicians.GetByID(ctx, clinicianID); err != nil {
		return nil, translate("load clinician", "clinician", err)
	}
	if windows == nil {
		windows = []model.TimeWindow{}
	}

	day := model.Day(date)
	row := model.ClinicianAvailability{
		ClinicianID: clinicianID,
		Date:        datatypes.Date(day),
		Enabled:     enabled,
		Windows:     datatypes.JSONSlice[model.TimeWindow](windows),
	}
	if err := s.store.Availability.Upsert(ctx, &row); err != nil {
		return nil, translate("save availability", "availability", err)
	}
	saved, err := s.store.Availability.GetForDate(ctx, clinicianID, day)
	if err != nil {
		return nil, translate("load availability", "availability", err)
	}
	return saved, nil
}

// ApplyWeeklyTemplate writes the template's windows on every date it
// expands to between from and to. It returns the number of dates written.
func (s *ClinicianService) ApplyWeeklyTemplate(
	ctx context.Context,
	clinicianID uuid.UUID,
	tpl calendar.WeeklyTemplate,
	from, to time.Time,
) (int, error) {
	dates, err := calendar.ExpandWeekly(tpl, from, to)
	if err != nil {
		return 0, apperrors.InvalidState("%v", err)
	}
	for _, d := range dates {
		if _, err := s.SetAvailability(ctx, clinicianID, d, true, tpl.Windows); err != nil {
			return 0, err
		}
	}
	return len(dates), nil
}

// Availability returns the stored rows between two dates.
func (s *ClinicianService) Availability(ctx context.Context, clinicianID uuid.UUID, from, to time.Time) ([]model.ClinicianAvailability, error) {
	rows, err := s.store.Availability.ListRange(ctx, clinicianID, from, to)
	if err != nil {
		return nil, translate("list availability", "availability", err)
	}
	return rows, nil
}
