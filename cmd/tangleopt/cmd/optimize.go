package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tanglegram/tangleopt/internal/pipeline"
	"github.com/tanglegram/tangleopt/pkg/model"
)

var (
	optimizeOutput   string
	optimizeLeader   string
	optimizePoGap    float64
	optimizeBackend  string
	optimizeTimeout  int
	optimizeCompress string
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize INSTANCE",
	Short: "Decide subtree swaps that minimize leader-line crossings for an instance",
	Long: `optimize reads an instance record produced by "parse", builds the
geometry and ILP model, solves it, and writes the resulting solution record
(per-leaf final positions and per-internal-vertex swap decisions) as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optimizeOutput, "output", "o", "", "Output file for the solution JSON (default: stdout)")
	optimizeCmd.Flags().StringVarP(&optimizeLeader, "leader", "l", "s", "Leader style: s (straight) or po (poly-orthogonal)")
	optimizeCmd.Flags().Float64VarP(&optimizePoGap, "po-gap", "g", 0, "Vertical gap below which a poly-orthogonal pair is treated as horizontal")
	optimizeCmd.Flags().StringVar(&optimizeBackend, "backend", "branch_and_bound", "Solver backend: branch_and_bound or enumerate")
	optimizeCmd.Flags().IntVar(&optimizeTimeout, "timeout", 30, "Solver wall-clock budget in seconds (0 disables the deadline)")
	optimizeCmd.Flags().StringVar(&optimizeCompress, "compress", "none", "Compress the output file: none, gzip or zstd (requires --output)")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	instPath := args[0]

	var inst model.Instance
	if err := readRecord(instPath, &inst); err != nil {
		return err
	}

	log.Info("optimizing %q: %d leaves, leader=%s", inst.Title, inst.NumLeaves, optimizeLeader)
	p := pipeline.New(log)
	sol, err := p.Solve(context.Background(), &inst, pipeline.SolveConfig{
		LeaderType:     optimizeLeader,
		PoGap:          optimizePoGap,
		SolverBackend:  optimizeBackend,
		TimeoutSeconds: optimizeTimeout,
	})
	if sol != nil {
		if werr := writeSolution(cmd, sol); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	log.Info("solved: %d unavoidable crossings", sol.NumIntersections)
	return nil
}

func writeSolution(cmd *cobra.Command, sol *model.Solution) error {
	if err := writeRecord(sol, cmd.OutOrStdout(), optimizeOutput, optimizeCompress); err != nil {
		return err
	}
	if optimizeOutput != "" {
		GetLogger().Info("wrote solution to %s", optimizeOutput)
	}
	return nil
}
