package complement

import "strings"

// Category classifies a ClaveProdServ code for freight evidence.
type Category int

const (
	CategoryNone Category = iota
	// CategoryFreightService is a billed freight or cargo transport service.
	CategoryFreightService
	// CategoryTransportAdjacent is logistics or management work that only
	// counts as freight when a manifest subtree backs it.
	CategoryTransportAdjacent
	// CategoryTransportGroup is any code of the transport, logistics and
	// management segments a transfer document can carry.
	CategoryTransportGroup
)

type catalogEntry struct {
	prefix   string
	category Category
}

// freightCatalog is matched longest prefix first.
var freightCatalog = []catalogEntry{
	{"781015", CategoryFreightService},
	{"781016", CategoryFreightService},
	{"781017", CategoryFreightService},
	{"781018", CategoryFreightService},
	{"78102", CategoryFreightService},
	{"801017", CategoryTransportAdjacent},
	{"801018", CategoryTransportAdjacent},
	{"811017", CategoryTransportAdjacent},
	{"811018", CategoryTransportAdjacent},
	{"78", CategoryTransportGroup},
	{"80", CategoryTransportGroup},
	{"81", CategoryTransportGroup},
}

// Classify returns the freight category of a ClaveProdServ code.
func Classify(claveProdServ string) Category {
	code := strings.TrimSpace(claveProdServ)
	best, bestLen := CategoryNone, 0
	for _, e := range freightCatalog {
		if len(e.prefix) > bestLen && strings.HasPrefix(code, e.prefix) {
			best, bestLen = e.category, len(e.prefix)
		}
	}
	return best
}
