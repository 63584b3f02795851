package ledger

import (
	"github.com/shipdesk/shipdesk/internal/ledger/repository"
	"github.com/shipdesk/shipdesk/internal/ledger/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledger.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
