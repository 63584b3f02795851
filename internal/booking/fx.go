package booking

import (
	"github.com/shipdesk/shipdesk/internal/booking/repository"
	"github.com/shipdesk/shipdesk/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
