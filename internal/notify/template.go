// Package notify delivers patient notifications by email and SMS. Delivery
// happens after the triggering change is committed and never fails it.
package notify

import (
	"fmt"
	"sort"
	"strings"
)

// Template names.
const (
	TemplateBookingConfirmed     = "booking_confirmed"
	TemplateAppointmentCancelled = "appointment_cancelled"
	TemplateAppointmentCompleted = "appointment_completed"
	TemplatePaymentReceived      = "payment_received"
	TemplateCycleReset           = "cycle_reset"
)

// Template is a message with {{key}} placeholders.
type Template struct {
	Subject string
	Body    string
}

// DefaultTemplates are the built-in messages.
func DefaultTemplates() map[string]Template {
	return map[string]Template{
		TemplateBookingConfirmed: {
			Subject: "Appointment booked",
			Body:    "Hello {{name}}, your appointment with {{clinician}} is booked for {{slot}}.",
		},
		TemplateAppointmentCancelled: {
			Subject: "Appointment cancelled",
			Body:    "Hello {{name}}, your appointment on {{slot}} was cancelled. {{reason}}",
		},
		TemplateAppointmentCompleted: {
			Subject: "Thank you for your visit",
			Body:    "Hello {{name}}, your session on {{slot}} is complete. {{allowance}}",
		},
		TemplatePaymentReceived: {
			Subject: "Payment received",
			Body:    "Hello {{name}}, we received {{amount}} for your {{kind}}. Outstanding: {{outstanding}}.",
		},
		TemplateCycleReset: {
			Subject: "You can book a new consultation",
			Body:    "Hello {{name}}, you are eligible to book a new consultation.",
		},
	}
}

// Render substitutes {{key}} placeholders from data. Unknown placeholders
// are left as they are.
func (t Template) Render(data map[string]string) (subject, body string) {
	if len(data) == 0 {
		return t.Subject, t.Body
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", data[k])
	}
	r := strings.NewReplacer(pairs...)
	return r.Replace(t.Subject), strings.TrimSpace(r.Replace(t.Body))
}

func lookup(templates map[string]Template, name string) (Template, error) {
	t, ok := templates[name]
	if !ok {
		return Template{}, fmt.Errorf("notify: unknown template %q", name)
	}
	return t, nil
}
