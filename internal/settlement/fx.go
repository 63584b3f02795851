package settlement

import (
	"github.com/shipdesk/shipdesk/internal/settlement/repository"
	"github.com/shipdesk/shipdesk/internal/settlement/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settlement.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
