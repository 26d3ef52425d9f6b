package main

import (
	"os"

	"github.com/anoideaopen/proxymanager/cmd/proxymanager/cli"
)

func main() {
	os.Exit(cli.ExitCode(cli.Execute()))
}
