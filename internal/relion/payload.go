package relion

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Payload is the envelope the producer wraps ledger line batches in.
type Payload struct {
	Data []LedgerLine `json:"Data"`
}

// ParsePayload decodes a raw Relion export payload into ledger lines.
// An empty Data array is valid and yields an empty slice.
func ParsePayload(raw []byte) ([]LedgerLine, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	var payload Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	return payload.Data, nil
}

// GroupByCompetenceUnit splits a batch of lines by their target legal entity.
// Fan-out order is stabilised by sorting company IDs; the lines within each
// group keep their payload order.
func GroupByCompetenceUnit(lines []LedgerLine) map[string][]LedgerLine {
	groups := make(map[string][]LedgerLine)
	for _, line := range lines {
		groups[line.CompetenceUnit] = append(groups[line.CompetenceUnit], line)
	}
	return groups
}

// CompanyIDs returns the sorted set of competence units present in a grouping.
func CompanyIDs(groups map[string][]LedgerLine) []string {
	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
