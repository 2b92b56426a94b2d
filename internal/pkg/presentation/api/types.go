package api

import (
	"github.com/diwise/iot-asset-telemetry/internal/pkg/application/validation"
	"github.com/diwise/iot-asset-telemetry/pkg/types"
)

type meta struct {
	Count uint64 `json:"count"`
}

type ApiResponse struct {
	Meta *meta `json:"meta,omitempty"`
	Data any   `json:"data"`
}

func listResponse[T any](items []T) ApiResponse {
	return ApiResponse{
		Meta: &meta{Count: uint64(len(items))},
		Data: items,
	}
}

type IngestResponse struct {
	Event      types.TelemetryIngestEvent `json:"event"`
	Validation validation.Result          `json:"validation"`
}

type statusUpdate struct {
	Status types.MaintenanceStatus `json:"status"`
}
