package main

import (
	"github.com/driftwood-studio/loom/cmd"
)

func main() {
	cmd.Execute()
}
