package main

import (
	"github.com/dodomondo0/fool-p2p-app/internal/cli"
	"github.com/dodomondo0/fool-p2p-app/internal/logging"
)

func main() {
	// Initialize logging
	logging.Init()
	cli.Execute()
}
