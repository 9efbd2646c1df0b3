package main

import (
	"fmt"
	"os"

	"github.com/tradescribe/TradeScribe/internal/cli"
	"github.com/tradescribe/TradeScribe/internal/gateway"
)

func main() {
	rootCmd := cli.NewRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if gateway.IsUnauthenticated(err) {
			fmt.Fprintln(os.Stderr, "Run 'tradescribe login' to sign in.")
		}
		os.Exit(1)
	}
}
