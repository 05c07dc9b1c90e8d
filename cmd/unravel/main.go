package main

import (
	"os"

	"unravel/internal/cliapp"
)

func main() {
	os.Exit(cliapp.Run(os.Args[1:]))
}
