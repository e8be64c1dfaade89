// Package complement validates the structural rules of the payroll
// (Nómina), payments (Pagos) and freight manifest (Carta Porte) complements.
package complement

import "fjacquet/cfdi-sentinel/internal/models"

// Tristate is a yes/no answer that can also not apply.
type Tristate string

const (
	Yes           Tristate = models.Yes
	No            Tristate = models.No
	NotApplicable Tristate = models.NotApplicable
)

func boolState(b bool) Tristate {
	if b {
		return Yes
	}
	return No
}
