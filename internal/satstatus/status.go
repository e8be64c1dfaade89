// Package satstatus queries the SAT ConsultaCFDIService for the live status
// of a stamped CFDI and caches the answers.
package satstatus

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// State is the status the SAT reports for a folio.
type State string

const (
	StateValid           State = "Vigente"
	StateCancelled       State = "Cancelado"
	StateNotFound        State = "No Encontrado"
	StateConnectionError State = "Error Conexión"
	StateNotVerified     State = "No verificado"
)

// Status is one SAT answer.
type Status struct {
	State              State     `json:"estado"`
	StatusCode         string    `json:"codigo_estatus,omitempty"`
	Cancelable         string    `json:"es_cancelable,omitempty"`
	CancellationStatus string    `json:"estatus_cancelacion,omitempty"`
	EFOSValidation     string    `json:"validacion_efos,omitempty"`
	ValidatedAt        time.Time `json:"validated_at"`
	// Cached marks an answer served from the cache.
	Cached bool `json:"-"`
}

// Checker queries the live status of one document.
type Checker interface {
	Check(ctx context.Context, uuid, issuerRFC, receiverRFC string, total decimal.Decimal) (Status, error)
}

// Checkable reports whether the inputs are enough for a SAT query.
func Checkable(uuid, issuerRFC, receiverRFC string, total decimal.Decimal) bool {
	return uuid != "" && issuerRFC != "" && receiverRFC != "" && total.IsPositive()
}
