package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys shared by the use cases.
const (
	AttrUserID      = attribute.Key("mobilebook.user_id")
	AttrProviderID  = attribute.Key("mobilebook.provider_id")
	AttrBookings    = attribute.Key("mobilebook.bookings")
	AttrConflicts   = attribute.Key("mobilebook.conflicts")
	AttrCandidates  = attribute.Key("mobilebook.coverage.candidates")
	AttrBounds      = attribute.Key("mobilebook.coverage.bounds")
	AttrEstimator   = attribute.Key("mobilebook.travel.estimator")
	AttrAppointment = attribute.Key("mobilebook.appointment_id")
)
