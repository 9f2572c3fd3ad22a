package main

import (
	"fmt"
	"os"

	"github.com/efreitasn/tradeledger/internal/cli"
)

func main() {
	if err := cli.NewCommand(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
