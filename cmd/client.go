package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sajjad-MoBe/NumAPI/client"
)

func newClientCmd() *cobra.Command {
	var serverURL string

	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Query a running NumAPI server",
	}
	clientCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Base URL of the server")

	factorialCmd := &cobra.Command{
		Use:   "factorial N",
		Short: "Print N!",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid n %q: %w", args[0], err)
			}
			result, err := client.New(serverURL).Factorial(cmd.Context(), n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.String())
			return nil
		},
	}

	fibonacciCmd := &cobra.Command{
		Use:   "fibonacci N",
		Short: "Print the Nth Fibonacci number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid n %q: %w", args[0], err)
			}
			result, err := client.New(serverURL).Fibonacci(cmd.Context(), n)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.String())
			return nil
		},
	}

	meanCmd := &cobra.Command{
		Use:   "mean X...",
		Short: "Print the arithmetic mean of the given numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			xs := make([]float64, 0, len(args))
			for _, arg := range args {
				x, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("invalid number %q: %w", arg, err)
				}
				xs = append(xs, x)
			}
			result, err := client.New(serverURL).Mean(cmd.Context(), xs)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(result, 'g', -1, 64))
			return nil
		},
	}

	clientCmd.AddCommand(factorialCmd, fibonacciCmd, meanCmd)
	return clientCmd
}
