package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tanglegram/tangleopt/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string

	logger utils.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "tangleopt",
	Short: "Minimize tanglegram leader-line crossings between a phylogenetic tree and a map",
	Long: `tangleopt lays out the leaves of a rooted binary phylogenetic tree along a
horizontal line above a geographic map and decides, subtree by subtree,
whether to swap left and right children so the leader lines connecting
leaves to their mapped sites cross as little as possible.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)
		return nil
	},
}

// Execute runs the root command and returns whatever error the invoked
// subcommand produced, preserving its *apperrors.AppError code for the
// caller to map to an exit status via apperrors.ExitCode.
func Execute() error {
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (accepted but not read; commands take their settings from flags)")

	binName := BinName()
	rootCmd.Example = `  # Build an instance record from a Newick tree and a GeoJSON site file
  ` + binName + ` parse tree.nwk sites.geojson -o instance.json

  # Optimize leader-line crossings for a previously built instance
  ` + binName + ` optimize instance.json -o solution.json -l po`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
