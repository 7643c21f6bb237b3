package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/musehq/muse/internal/harness"
	"github.com/musehq/muse/internal/score"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	ShowTrace bool
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <scenario.yaml> [scenario.yaml...]",
		Short: "Run conformance scenarios against an in-memory history",
		Long: `Run conformance scenarios against an in-memory history.

Each scenario file describes a commit history plus one operation
(replay, base, merge, or checkout). The scenario executes against
in-memory storage and prints its deterministic trace; a scenario whose
operation errors fails the run.

Examples:
  muse verify testdata/scenarios/merge-disjoint.yaml
  muse verify testdata/scenarios/*.yaml --trace`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.ShowTrace, "trace", false, "print each scenario's canonical trace")

	return cmd
}

func runVerify(opts *VerifyOptions, paths []string, cmd *cobra.Command) error {
	w := cmd.OutOrStdout()
	failed := 0

	type verifyResult struct {
		Path  string `json:"path"`
		Name  string `json:"name,omitempty"`
		OK    bool   `json:"ok"`
		Error string `json:"error,omitempty"`
		Trace string `json:"trace,omitempty"`
	}
	results := make([]verifyResult, 0, len(paths))

	for _, path := range paths {
		res := verifyResult{Path: path}
		scenario, err := harness.LoadScenario(path)
		if err != nil {
			res.Error = err.Error()
			failed++
			results = append(results, res)
			continue
		}
		res.Name = scenario.Name

		run, err := harness.Run(scenario)
		if err != nil {
			res.Error = err.Error()
			failed++
			results = append(results, res)
			continue
		}

		trace, err := score.MarshalCanonical(run.Trace)
		if err != nil {
			res.Error = err.Error()
			failed++
			results = append(results, res)
			continue
		}
		res.OK = true
		if opts.ShowTrace {
			res.Trace = string(trace)
		}
		results = append(results, res)
	}

	if opts.Format == "json" {
		if err := outputJSON(w, map[string]any{
			"scenarios": results,
			"failed":    failed,
		}); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			status := "ok"
			if !res.OK {
				status = "FAIL"
			}
			name := res.Name
			if name == "" {
				name = res.Path
			}
			fmt.Fprintf(w, "%-4s %s\n", status, name)
			if res.Error != "" {
				fmt.Fprintf(w, "     %s\n", res.Error)
			}
			if res.Trace != "" {
				fmt.Fprintf(w, "     %s\n", res.Trace)
			}
		}
		fmt.Fprintf(w, "%d scenario(s), %d failed\n", len(results), failed)
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
	}
	return nil
}
