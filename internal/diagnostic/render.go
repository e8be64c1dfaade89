package diagnostic

import "strings"

// NoObservations is the technical note of a document without findings.
const NoObservations = "SIN OBSERVACIONES"

// Render builds the fiscal comment for ds. Fragments are joined in the
// order the findings were raised; Prepend fragments go in front, the most
// recently raised first.
func Render(ds []Diagnostic) string {
	var front, back []string
	for _, d := range ds {
		msg := strings.TrimSpace(d.Message())
		if msg == "" {
			continue
		}
		if PlacementOf(d.Code) == Prepend {
			front = append([]string{msg}, front...)
			continue
		}
		back = append(back, msg)
	}
	return strings.Join(append(front, back...), " ")
}

// RenderTechnical builds the technical notes for ds. The last blocking
// finding wins; otherwise every technical note is kept in order.
func RenderTechnical(ds []Diagnostic) string {
	var notes []string
	for i := len(ds) - 1; i >= 0; i-- {
		if ds[i].Blocking() {
			if note := strings.TrimSpace(ds[i].Technical()); note != "" {
				return note
			}
		}
	}
	for _, d := range ds {
		if note := strings.TrimSpace(d.Technical()); note != "" {
			notes = append(notes, note)
		}
	}
	if len(notes) == 0 {
		return NoObservations
	}
	return strings.Join(notes, " | ")
}
