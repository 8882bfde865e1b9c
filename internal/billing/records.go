package billing

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/clinic-scheduling/internal/apperrors"
	"github.com/Leganyst/clinic-scheduling/internal/model"
)

// PackageStatus is what the front desk is offered for a package.
type PackageStatus string

const (
	PackageNone   PackageStatus = "none"
	PackageUnpaid PackageStatus = "pay_package"
	PackagePaid   PackageStatus = "paid"
)

// Payable applies the concession and rounds to the cent, half away from zero.
func Payable(total model.Money, concessionPercent float64) model.Money {
	return model.Money(math.Round(float64(total) * (100 - concessionPercent) / 100))
}

// RecomputePayable recomputes the payable amount from a stored record.
func RecomputePayable(b model.BillingRecord) model.Money {
	return Payable(b.TotalAmount, b.Concession())
}

// RoundConcession rounds a percentage to the two decimals the store keeps.
func RoundConcession(c float64) float64 {
	return math.Round(c*100) / 100
}

// ValidateConcession accepts percentages in [0, 100].
func ValidateConcession(c *float64) error {
	if c == nil {
		return nil
	}
	if math.IsNaN(*c) || *c < 0 || *c > 100 {
		return apperrors.InvalidState("concession must be between 0 and 100, got %v", *c)
	}
	return nil
}

// NewConsultation builds the pending flat-fee record that opens a cycle.
func (p Policy) NewConsultation(patientID uuid.UUID, now time.Time) model.BillingRecord {
	fee := p.ConsultationFee
	if fee <= 0 {
		fee = DefaultConsultationFee
	}
	return model.BillingRecord{
		PatientID:     patientID,
		Kind:          model.BillingKindConsultation,
		TotalAmount:   fee,
		PayableAmount: fee,
		Status:        model.BillingStatusPending,
		CreatedDate:   now,
	}
}

// NewPackage builds a pending package record.
func NewPackage(patientID uuid.UUID, amount model.Money, concession *float64, now time.Time) (model.BillingRecord, error) {
	if amount <= 0 {
		return model.BillingRecord{}, apperrors.InvalidState("package amount must be positive")
	}
	if err := ValidateConcession(concession); err != nil {
		return model.BillingRecord{}, err
	}
	if concession != nil {
		rounded := RoundConcession(*concession)
		concession = &rounded
	}
	rec := model.BillingRecord{
		PatientID:         patientID,
		Kind:              model.BillingKindPackage,
		TotalAmount:       amount,
		ConcessionPercent: concession,
		Status:            model.BillingStatusPending,
		CreatedDate:       now,
	}
	rec.PayableAmount = RecomputePayable(rec)
	return rec, nil
}

// ApplyPayment adds amount to the record and completes it once covered.
func ApplyPayment(rec *model.BillingRecord, amount model.Money, now time.Time) error {
	if amount <= 0 {
		return apperrors.InvalidState("payment amount must be positive")
	}
	if rec.Completed() {
		return apperrors.InvalidState("%s record %s is already paid", rec.Kind, rec.ID)
	}
	rec.AmountPaid += amount
	if rec.AmountPaid >= rec.PayableAmount {
		rec.Status = model.BillingStatusCompleted
		paidAt := now
		rec.PaidAt = &paidAt
	}
	return nil
}

// Active returns the most recently created record of kind, or nil.
func Active(records []model.BillingRecord, kind model.BillingKind) *model.BillingRecord {
	var active *model.BillingRecord
	for i := range records {
		r := &records[i]
		if r.Kind != kind {
			continue
		}
		if active == nil || r.CreatedDate.After(active.CreatedDate) ||
			(r.CreatedDate.Equal(active.CreatedDate) && r.CreatedAt.After(active.CreatedAt)) {
			active = r
		}
	}
	return active
}

// CyclePackage returns the active package if it belongs to the cycle opened
// by consultation. Packages from earlier cycles are not active.
func CyclePackage(records []model.BillingRecord, consultation *model.BillingRecord) *model.BillingRecord {
	pkg := Active(records, model.BillingKindPackage)
	if pkg == nil || consultation == nil {
		return pkg
	}
	if pkg.CreatedDate.Before(consultation.CreatedDate) {
		return nil
	}
	return pkg
}

// FactsFrom assembles Facts from a patient's full billing history.
func FactsFrom(p model.Patient, records []model.BillingRecord) Facts {
	consultation := Active(records, model.BillingKindConsultation)
	return Facts{
		Patient:      p,
		Consultation: consultation,
		Package:      CyclePackage(records, consultation),
	}
}

// StatusOfPackage maps the active package to the offer shown to staff.
func StatusOfPackage(pkg *model.BillingRecord) PackageStatus {
	switch {
	case pkg == nil:
		return PackageNone
	case pkg.Completed():
		return PackagePaid
	default:
		return PackageUnpaid
	}
}
