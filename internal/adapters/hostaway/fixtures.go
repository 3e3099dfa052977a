package hostaway

import (
	_ "embed"
	"encoding/json"
	"sync"
)

//go:embed fixtures.json
var fixturesJSON []byte

var (
	fixturesOnce sync.Once
	fixtures     []map[string]any
)

// Fixtures returns the built-in demo review set used when the upstream API
// is unreachable or returns nothing. Callers get a fresh slice each time;
// the record maps themselves are read-only by convention.
func Fixtures() []map[string]any {
	fixturesOnce.Do(func() {
		if err := json.Unmarshal(fixturesJSON, &fixtures); err != nil {
			panic("hostaway: bad embedded fixtures: " + err.Error())
		}
	})
	out := make([]map[string]any, len(fixtures))
	copy(out, fixtures)
	return out
}
