package main

import (
	"fmt"
	"os"

	"github.com/mithrel/ndkbinder/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "binderctl:", err)
		os.Exit(1)
	}
}
