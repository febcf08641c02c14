// Command gasmeter applies gas-metering instrumentation to a WebAssembly
// module: it splices in an accounting import and rewrites every function
// body to charge gas at each control-flow boundary.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wazerogas/gasmeter/internal/gasconfig"
	"github.com/wazerogas/gasmeter/internal/pipeline"
	"github.com/wazerogas/gasmeter/internal/wasm/binary"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gasmeter",
		Short: "Instrument WebAssembly modules with gas metering",
	}
	root.AddCommand(newInstrumentCommand())
	return root
}

func newInstrumentCommand() *cobra.Command {
	var (
		outPath         string
		costsPath       string
		importNamespace string
		importField     string
		signature       string
		parallelism     int
		verbose         bool
	)

	cmd := &cobra.Command{
		Use:   "instrument <in.wasm>",
		Short: "Splice an accounting import and instrument every function body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			in, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input module: %w", err)
			}
			m, err := binary.DecodeModule(in)
			if err != nil {
				return fmt.Errorf("decode input module: %w", err)
			}

			costsDoc, err := os.ReadFile(costsPath)
			if err != nil {
				return fmt.Errorf("read cost table: %w", err)
			}
			costTable, err := gasconfig.LoadCostTable(costsDoc)
			if err != nil {
				return fmt.Errorf("load cost table: %w", err)
			}

			sig, err := parseSignature(signature)
			if err != nil {
				return err
			}

			cfg := gasconfig.NewConfig(costTable).
				WithImportNamespace(importNamespace).
				WithImportField(importField).
				WithAccountantSignature(sig).
				WithParallelism(parallelism)

			var summary pipeline.Summary
			if parallelism > 1 {
				summary, err = pipeline.RunParallel(m, cfg)
			} else {
				summary, err = pipeline.Run(m, cfg)
			}
			if err != nil {
				return fmt.Errorf("instrument module: %w", err)
			}

			out := binary.EncodeModule(m)
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return fmt.Errorf("write output module: %w", err)
			}

			logrus.WithFields(logrus.Fields{
				"functions": summary.FunctionCount,
				"segments":  summary.SegmentCount,
				"cost":      summary.TotalCost,
				"output":    outPath,
			}).Info("wrote instrumented module")
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "out.wasm", "output module path")
	cmd.Flags().StringVar(&costsPath, "costs", "", "YAML cost table path (required)")
	cmd.Flags().StringVar(&importNamespace, "import-namespace", "env", "accounting import module namespace")
	cmd.Flags().StringVar(&importField, "import-field", "add_gas", "accounting import field name")
	cmd.Flags().StringVar(&signature, "signature", "i64", "accounting call signature: i64 or i32pair")
	cmd.Flags().IntVar(&parallelism, "parallelism", 1, "concurrent function workers (>1 enables RunParallel)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	cmd.MarkFlagRequired("costs")

	return cmd
}

func parseSignature(s string) (gasconfig.AccountantSignature, error) {
	switch s {
	case "i64":
		return gasconfig.SingleI64, nil
	case "i32pair":
		return gasconfig.SplitI32Pair, nil
	default:
		return 0, fmt.Errorf("unknown accounting signature %q: want i64 or i32pair", s)
	}
}
