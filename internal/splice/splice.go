// Package splice inserts a new function import into a module at the
// pivot equal to the current import count, patching every index reference
// that must shift to make room for it. Grounded directly on WAVM's
// AddImportedFunc (insert-imported-context.h).
package splice

import (
	"github.com/wazerogas/gasmeter/internal/gaserr"
	"github.com/wazerogas/gasmeter/internal/rewrite"
	"github.com/wazerogas/gasmeter/internal/wasm"
)

// Import splices a new function import {namespace, field, sig} into m,
// returning its index in the function index space (the pivot). Steps run
// in the order AddImportedFunc does: append the signature, patch the
// module's index references, rewrite every function body's call
// immediates, and only then append the import itself — so every patch
// above sees the pre-splice index space.
func Import(m *wasm.Module, namespace, field string, sig wasm.FunctionType) (wasm.Index, error) {
	pivot := m.ImportedFunctionCount()

	typeIndex := wasm.Index(len(m.TypeSection))
	m.TypeSection = append(m.TypeSection, &sig)

	rewrite.Module(m, pivot)

	for i, code := range m.CodeSection {
		rewritten, err := rewrite.Body(code.Body, pivot)
		if err != nil {
			return 0, gaserr.MalformedInputf("splice import: function %d: %w", i, err)
		}
		code.Body = rewritten
	}

	m.ImportSection = append(m.ImportSection, &wasm.Import{
		Type:     wasm.ExternTypeFunc,
		Module:   namespace,
		Name:     field,
		DescFunc: typeIndex,
	})

	return pivot, nil
}
