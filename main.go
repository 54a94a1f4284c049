/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/anima-core/engine"
	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/renderer/headless"
	"github.com/spaghettifunk/anima-core/testbed"
)

func main() {
	configPath := flag.String("config", "", "path to the engine TOML config")
	flag.Parse()

	config, err := engine.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal(err.Error())
	}

	device, err := headless.New(config.Device)
	if err != nil {
		core.LogFatal(err.Error())
	}

	tb := testbed.NewTestGame()

	e, err := engine.New(config, device)
	if err != nil {
		panic(err)
	}

	if err := e.Initialize(); err != nil {
		panic(err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// stop the loop on sigterm and other system calls
	go func() {
		<-sigCh
		e.Stop()
	}()

	// run engine
	runErr := e.Run(tb.Game)
	if err := e.Shutdown(tb.Game); err != nil {
		core.LogError(err.Error())
	}
	if runErr != nil {
		panic(runErr)
	}
}
