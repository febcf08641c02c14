// Package cost implements the dense, complete cost table gas metering
// charges every operator against.
package cost

import (
	"fmt"
	"sort"

	"github.com/wazerogas/gasmeter/internal/gaserr"
	"github.com/wazerogas/gasmeter/internal/wasm"
)

// Table is a dense, immutable mapping from every opcode in the closed
// enumeration to its gas cost. It is validated complete at construction:
// an incomplete table is a configuration error, not a runtime one, since a
// missing entry means the operator's cost was never a decision anyone made.
type Table struct {
	costs map[wasm.Opcode]uint64
}

// NewTable builds a Table from costs, keyed by opcode. It fails with a
// gaserr config error, naming every missing mnemonic, if any opcode in
// wasm.AllOpcodes() is missing.
func NewTable(costs map[wasm.Opcode]uint64) (*Table, error) {
	all := wasm.AllOpcodes()
	var missing []string
	for _, op := range all {
		if _, ok := costs[op]; !ok {
			missing = append(missing, wasm.OpcodeName(op))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, gaserr.Configf("cost table missing entries for: %v", missing)
	}

	t := &Table{costs: make(map[wasm.Opcode]uint64, len(costs))}
	for op, c := range costs {
		t.costs[op] = c
	}
	return t, nil
}

// Cost returns op's gas cost. It panics if op is not present, since a
// complete Table built by NewTable is the only legal way to construct one,
// and every in-scope opcode is guaranteed present by that constructor.
func (t *Table) Cost(op wasm.Opcode) uint64 {
	c, ok := t.costs[op]
	if !ok {
		panic(fmt.Sprintf("cost: opcode %s has no entry in a table that should be complete", wasm.OpcodeName(op)))
	}
	return c
}
