package main

import (
	"os"

	tabulacmder "github.com/tabulahq/tabula/cmd/tabula"
)

func main() {
	cmd := tabulacmder.NewTabulaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
