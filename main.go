package main

import (
	"github.com/Shuffle-and-Sync/shufflesync-cli/cmd"
	"github.com/Shuffle-and-Sync/shufflesync-cli/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
