package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "mailsweep",
	Short: "mailsweep finds newsletters in your inbox and unsubscribes from them",
}

// Execute runs the root command. Fatal errors (connection, authentication,
// configuration) surface here and yield a non-zero exit status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(batchCmd)
}
