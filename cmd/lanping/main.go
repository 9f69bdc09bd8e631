package main

import (
	"fmt"
	"os"

	"github.com/edgecli/lanping/cmd/lanping/commands"
	"github.com/edgecli/lanping/internal/ui"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.RenderError(err))
		os.Exit(1)
	}
}
