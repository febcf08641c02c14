// Package gasconfig holds the gas-metering pipeline's configuration: the
// cost table, the accountant import's namespace/field/signature, and the
// worker pool size for parallel instrumentation. It follows wazero's
// RuntimeConfig clone-on-write builder idiom: each With* method returns a
// new *Config rather than mutating the receiver, so a base configuration
// can be shared and specialized without aliasing bugs.
package gasconfig

import (
	"gopkg.in/yaml.v3"

	"github.com/wazerogas/gasmeter/internal/cost"
	"github.com/wazerogas/gasmeter/internal/gaserr"
	"github.com/wazerogas/gasmeter/internal/wasm"
)

// AccountantSignature selects the signature of the injected accounting
// import, resolving spec's open question about the accounting call's shape.
type AccountantSignature int

const (
	// SingleI64 calls the accountant as func(cost i64). This is the
	// default: a single 64-bit argument is the natural shape for a gas
	// count and is what most host-import gas meters expose.
	SingleI64 AccountantSignature = iota
	// SplitI32Pair calls the accountant as func(low i32, high i32), low
	// word pushed first then high word, matching GasVisitContext.h's
	// insert_inst, which splits the i64 gas counter into two i32_const
	// pushes before the call. Kept because the original source contains
	// this variant alongside the single-i64 one.
	SplitI32Pair
)

// Config is the pipeline's immutable configuration. Build one with
// NewConfig and the With* methods.
type Config struct {
	costTable           *cost.Table
	importNamespace     string
	importField         string
	accountantSignature AccountantSignature
	parallelism         int
}

// NewConfig returns a Config with the given cost table and wazerogas
// defaults: import namespace "env", import field "add_gas", SingleI64
// accounting signature, and no parallelism (sequential pipeline.Run).
func NewConfig(costs *cost.Table) *Config {
	return &Config{
		costTable:           costs,
		importNamespace:     "env",
		importField:         "add_gas",
		accountantSignature: SingleI64,
		parallelism:         1,
	}
}

func (c *Config) clone() *Config {
	cp := *c
	return &cp
}

// WithImportNamespace returns a copy of c with the accounting import's
// module namespace set to ns.
func (c *Config) WithImportNamespace(ns string) *Config {
	cp := c.clone()
	cp.importNamespace = ns
	return cp
}

// WithImportField returns a copy of c with the accounting import's field
// name set to field.
func (c *Config) WithImportField(field string) *Config {
	cp := c.clone()
	cp.importField = field
	return cp
}

// WithAccountantSignature returns a copy of c using the given signature.
func (c *Config) WithAccountantSignature(sig AccountantSignature) *Config {
	cp := c.clone()
	cp.accountantSignature = sig
	return cp
}

// WithParallelism returns a copy of c that instruments up to n functions
// concurrently when run via pipeline.RunParallel. n <= 1 means sequential.
func (c *Config) WithParallelism(n int) *Config {
	cp := c.clone()
	cp.parallelism = n
	return cp
}

// CostTable returns c's cost table.
func (c *Config) CostTable() *cost.Table { return c.costTable }

// ImportNamespace returns the accounting import's module namespace.
func (c *Config) ImportNamespace() string { return c.importNamespace }

// ImportField returns the accounting import's field name.
func (c *Config) ImportField() string { return c.importField }

// AccountantSignature returns the accounting call's signature.
func (c *Config) AccountantSignature() AccountantSignature { return c.accountantSignature }

// Parallelism returns the configured worker count.
func (c *Config) Parallelism() int { return c.parallelism }

// AccountantFunctionType returns the wasm.FunctionType the spliced import
// must carry for the configured signature.
func (c *Config) AccountantFunctionType() wasm.FunctionType {
	switch c.accountantSignature {
	case SplitI32Pair:
		return wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI32, wasm.ValueTypeI32}}
	default:
		return wasm.FunctionType{Params: []wasm.ValueType{wasm.ValueTypeI64}}
	}
}

// costDocument is the YAML shape accepted by LoadCostTable: a flat map from
// opcode mnemonic (as produced by wasm.OpcodeName) to its gas cost.
type costDocument map[string]uint64

// LoadCostTable parses a YAML document mapping opcode mnemonics to costs
// into a *cost.Table, failing closed (gaserr config-kind) if any mnemonic
// is unrecognized or any in-scope opcode is missing.
func LoadCostTable(doc []byte) (*cost.Table, error) {
	var raw costDocument
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, gaserr.Configf("parse cost table yaml: %w", err)
	}

	mnemonicToOpcode := make(map[string]wasm.Opcode, len(wasm.AllOpcodes()))
	for _, op := range wasm.AllOpcodes() {
		mnemonicToOpcode[wasm.OpcodeName(op)] = op
	}

	costs := make(map[wasm.Opcode]uint64, len(raw))
	for mnemonic, c := range raw {
		op, ok := mnemonicToOpcode[mnemonic]
		if !ok {
			return nil, gaserr.Configf("cost table: unrecognized opcode mnemonic %q", mnemonic)
		}
		costs[op] = c
	}

	return cost.NewTable(costs)
}
