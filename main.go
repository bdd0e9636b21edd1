package main

import (
	"log"
	"os"

	"github.com/mitchellh/cli"

	"github.com/sahyadri/presensi/assets"
	"github.com/sahyadri/presensi/cmd/api"
)

func main() {
	const appName, appVersion = assets.ServiceName, assets.ServiceVersion

	apiCmd := api.NewCmd(appName, appVersion)

	c := cli.NewCLI(appName, appVersion)
	c.Args = os.Args[1:]
	c.Autocomplete = true
	c.Commands = map[string]cli.CommandFactory{
		"":    apiCmd, // default command if no subcommand defined
		"api": apiCmd,
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}
