// Package pipeline composes the import splicer and the gas-metering
// instrumenter into the end-to-end transform: splice first, so every
// function body instrumented afterward already has its post-splice indices.
package pipeline

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/wazerogas/gasmeter/internal/gasconfig"
	"github.com/wazerogas/gasmeter/internal/gaserr"
	"github.com/wazerogas/gasmeter/internal/meter"
	"github.com/wazerogas/gasmeter/internal/splice"
	"github.com/wazerogas/gasmeter/internal/wasm"
)

// Summary reports the aggregate effect of a pipeline run, for callers that
// want the numbers without scraping logs.
type Summary struct {
	AccountantIndex wasm.Index
	FunctionCount   int
	SegmentCount    int
	TotalCost       uint64
}

// Run splices the accounting import into m and instruments every defined
// function, sequentially. cfg supplies the cost table, import
// namespace/field, and accounting call signature.
func Run(m *wasm.Module, cfg *gasconfig.Config) (Summary, error) {
	accountantIndex, err := spliceAccountant(m, cfg)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{AccountantIndex: accountantIndex, FunctionCount: len(m.CodeSection)}
	for i, code := range m.CodeSection {
		body, result, err := meter.Body(code.Body, cfg.CostTable(), accountantIndex, cfg.AccountantSignature())
		if err != nil {
			return Summary{}, gaserr.MalformedInputf("instrument function %d: %w", i, err)
		}
		code.Body = body
		summary.SegmentCount += result.SegmentCount
		summary.TotalCost += result.TotalCost
		logrus.WithFields(logrus.Fields{
			"function": i,
			"segments": result.SegmentCount,
			"cost":     result.TotalCost,
		}).Debug("instrumented function")
	}

	logrus.WithFields(logrus.Fields{
		"functions": summary.FunctionCount,
		"segments":  summary.SegmentCount,
		"cost":      summary.TotalCost,
	}).Info("gas metering complete")

	return summary, nil
}

// RunParallel behaves like Run but instruments independent function bodies
// concurrently across up to cfg.Parallelism() workers, after the
// module-scope splice (which is never parallelized: it must see a
// consistent, not-yet-patched module).
func RunParallel(m *wasm.Module, cfg *gasconfig.Config) (Summary, error) {
	accountantIndex, err := spliceAccountant(m, cfg)
	if err != nil {
		return Summary{}, err
	}

	workers := cfg.Parallelism()
	if workers < 1 {
		workers = 1
	}

	type outcome struct {
		index  int
		body   []byte
		result meter.Result
		err    error
	}

	jobs := make(chan int)
	results := make(chan outcome)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				body, result, err := meter.Body(m.CodeSection[i].Body, cfg.CostTable(), accountantIndex, cfg.AccountantSignature())
				results <- outcome{index: i, body: body, result: result, err: err}
			}
		}()
	}

	go func() {
		for i := range m.CodeSection {
			jobs <- i
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	summary := Summary{AccountantIndex: accountantIndex, FunctionCount: len(m.CodeSection)}
	var firstErr error
	for out := range results {
		if out.err != nil {
			if firstErr == nil {
				firstErr = gaserr.MalformedInputf("instrument function %d: %w", out.index, out.err)
			}
			continue
		}
		m.CodeSection[out.index].Body = out.body
		summary.SegmentCount += out.result.SegmentCount
		summary.TotalCost += out.result.TotalCost
	}
	if firstErr != nil {
		return Summary{}, firstErr
	}

	logrus.WithFields(logrus.Fields{
		"functions": summary.FunctionCount,
		"segments":  summary.SegmentCount,
		"cost":      summary.TotalCost,
		"workers":   workers,
	}).Info("gas metering complete (parallel)")

	return summary, nil
}

func spliceAccountant(m *wasm.Module, cfg *gasconfig.Config) (wasm.Index, error) {
	idx, err := splice.Import(m, cfg.ImportNamespace(), cfg.ImportField(), cfg.AccountantFunctionType())
	if err != nil {
		return 0, gaserr.MalformedInputf("splice accountant import: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"namespace": cfg.ImportNamespace(),
		"field":     cfg.ImportField(),
		"index":     idx,
	}).Debug("spliced accountant import")
	return idx, nil
}
