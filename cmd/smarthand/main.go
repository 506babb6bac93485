package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"smarthand/robot"
	"smarthand/ui"
)

func main() {
	var verbose, listPorts bool
	flag.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flag.BoolVar(&listPorts, "list-ports", false, "print serial ports and exit")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stdout)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if listPorts {
		ports, err := robot.ListPorts()
		if err != nil {
			log.WithError(err).Fatal("cannot list serial ports")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	ui.Run(ctx, log)
}
