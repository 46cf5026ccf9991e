package main

import (
	"context"
	"os"

	"bilancio/internal/commands"
)

func main() {
	if err := commands.NewWorkerCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
