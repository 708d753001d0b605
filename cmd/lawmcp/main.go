package main

import (
	"os"

	"lawmcp/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
