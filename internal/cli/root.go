// Package cli wires ilosentinel's cobra command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/ilofleet/sentinel/pkg/version"
)

var rootCmd = &cobra.Command{
	Use:   "ilosentinel",
	Short: "Discover and track HPE iLO baseboard management controllers",
	Long: `ilosentinel scans a configured address range for HPE iLO
controllers, registers the ones that respond, and keeps their
unauthenticated and authenticated snapshots fresh on independent
cadences while reporting on their liveness.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("ilosentinel version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
