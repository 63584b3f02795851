package assignment

import (
	"github.com/shipdesk/shipdesk/internal/assignment/repository"
	"github.com/shipdesk/shipdesk/internal/assignment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("assignment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
