package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the numapi command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "numapi",
		Short: "A small numeric JSON API",
		Long: `NumAPI serves factorial, Fibonacci and arithmetic mean over HTTP
and gRPC, and ships a client for querying a running server.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newClientCmd())
	return root
}

func ExecuteServer() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Println("couldn't execute app,", err)
		os.Exit(1)
	}
}
