package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/mobilebook/internal/core/domain"
)

type conflictsRequest struct {
	Candidate domain.AppointmentCandidate `json:"candidate"`
	Existing  []domain.Booking            `json:"existing"`
}

type areaRequest struct {
	Center      domain.Coordinate `json:"center"`
	RadiusMiles float64           `json:"radius_miles"`
}

type coverageResponse struct {
	Covered   bool     `json:"covered"`
	Providers []string `json:"providers"`
}

// CheckConflictsHandler checks a candidate against caller-supplied bookings.
// The body is false when nothing conflicts, otherwise the conflicting ids.
func CheckConflictsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req conflictsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result, err := deps.Appointments.CheckConflicts(c.UserContext(), req.Candidate, req.Existing)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(result)
	}
}

// ProviderConflictsHandler checks a candidate against the provider's stored
// appointments.
func ProviderConflictsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var candidate domain.AppointmentCandidate
		if err := c.BodyParser(&candidate); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result, err := deps.Appointments.CheckConflictsForUser(c.UserContext(), c.Params("user_id"), candidate)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(result)
	}
}

// CoverageHandler lists the providers whose service area covers a point.
func CoverageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := strconv.ParseFloat(c.Params("latitude"), 64)
		if err != nil {
			return errBadRequest(c, "latitude must be a number")
		}
		lon, err := strconv.ParseFloat(c.Params("longitude"), 64)
		if err != nil {
			return errBadRequest(c, "longitude must be a number")
		}

		providers, err := deps.Areas.FindProvidersCovering(c.UserContext(), domain.Coordinate{Latitude: lat, Longitude: lon})
		if err != nil {
			return respondError(c, err)
		}
		if providers == nil {
			providers = []string{}
		}
		return c.JSON(coverageResponse{Covered: len(providers) > 0, Providers: providers})
	}
}

// ListAppointmentsHandler returns a user's appointments between two
// optional YYYY-MM-DD dates.
func ListAppointmentsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		appts, err := deps.Appointments.GetAppointments(c.UserContext(),
			c.Params("user_id"), c.Params("start_date"), c.Params("end_date"))
		if err != nil {
			return respondError(c, err)
		}
		if appts == nil {
			appts = []domain.Appointment{}
		}
		return c.JSON(appts)
	}
}

// CreateAppointmentHandler stores an appointment for a user.
func CreateAppointmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input domain.AppointmentInput
		if err := c.BodyParser(&input); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		appt, err := deps.Appointments.CreateAppointment(c.UserContext(), c.Params("user_id"), input)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(appt)
	}
}

// UpdateAppointmentHandler applies a partial update.
func UpdateAppointmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var input domain.AppointmentInput
		if err := c.BodyParser(&input); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		appt, err := deps.Appointments.UpdateAppointment(c.UserContext(), c.Params("id"), input)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(appt)
	}
}

// CancelAppointmentHandler deletes an appointment.
func CancelAppointmentHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Appointments.CancelAppointment(c.UserContext(), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// BufferedRangesHandler returns the user's appointments on a date widened by
// travel time to ?lat=&lon=.
func BufferedRangesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return errBadRequest(c, "lat must be a number")
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return errBadRequest(c, "lon must be a number")
		}

		ranges, err := deps.Appointments.BufferedRangesForDate(c.UserContext(),
			c.Params("user_id"), c.Params("date"), domain.Coordinate{Latitude: lat, Longitude: lon})
		if err != nil {
			return respondError(c, err)
		}
		if ranges == nil {
			ranges = []domain.BufferedRange{}
		}
		return c.JSON(ranges)
	}
}

// SetAreaHandler writes a provider's service area.
func SetAreaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req areaRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		area, err := deps.Areas.SetArea(c.UserContext(), c.Params("provider_id"), req.Center, req.RadiusMiles)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(area)
	}
}

// GetAreaHandler returns a provider's service area.
func GetAreaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		area, err := deps.Areas.GetArea(c.UserContext(), c.Params("provider_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(area)
	}
}

// DeleteAreaHandler removes a provider's service area.
func DeleteAreaHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Areas.DeleteArea(c.UserContext(), c.Params("provider_id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// AreaConflictsHandler lists the provider's upcoming bookings that fall
// outside their current service area.
func AreaConflictsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := deps.Areas.CheckStoredConflicts(c.UserContext(), c.Params("provider_id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(result)
	}
}
