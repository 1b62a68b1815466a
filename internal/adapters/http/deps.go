package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mobilebook/internal/adapters/postgres"
	"github.com/samirrijal/mobilebook/internal/adapters/valkey"
	"github.com/samirrijal/mobilebook/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Appointments *usecases.AppointmentService
	Areas        *usecases.AreaService
	NATS         *nats.Conn
	DB           *postgres.DB
	Cache        *valkey.Cache
}
