package main

import (
	"log"
	"os"

	"github.com/mitchellh/cli"
)

func main() {
	const appName, appVersion = "webhook-relay", "1.0.0"

	c := cli.NewCLI(appName, appVersion)
	c.Args = os.Args[1:]
	c.Autocomplete = true
	c.Commands = map[string]cli.CommandFactory{
		"send":      newSendCmd,
		"probe":     newProbeCmd,
		"endpoints": newEndpointsCmd,
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}
