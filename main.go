package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"tenant-sim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.WithError(err).Fatal("Failed to execute command")
		os.Exit(1)
	}
}
