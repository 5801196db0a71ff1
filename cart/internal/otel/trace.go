package otel

import (
	"go.opentelemetry.io/otel"

	"github.com/obarbosa/mercadinho/internal/common"
)

var Tracer = otel.Tracer(common.AppCartService)
