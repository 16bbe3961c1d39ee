package main

import (
	"github.com/meshcall/meshcall/internal/cli"
	"github.com/meshcall/meshcall/internal/logging"
)

func main() {
	logging.Init()
	cli.Execute()
}
