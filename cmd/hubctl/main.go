package main

import (
	"github.com/lobbyworks/presencehub/internal/cli"
)

func main() {
	cli.Execute()
}
