package main

import (
	"os"

	"github.com/imishinist/expctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
