//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed on the headless device. ANIMA_CONFIG points at an engine config file.
func (Run) Engine() error {
	mg.Deps(Build.Engine)
	args := []string{}
	if config := os.Getenv("ANIMA_CONFIG"); config != "" {
		args = append(args, "-config", config)
	}
	fmt.Println("Run engine...")
	if _, err := executeCmd("bin/anima", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}
