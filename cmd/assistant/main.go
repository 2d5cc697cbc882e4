package main

import (
	"os"

	"voice-assistant/cmd/assistant/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
