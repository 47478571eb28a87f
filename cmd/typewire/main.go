package main

import (
	"fmt"
	"os"

	"github.com/lk2023060901/typewire-go/cmd/typewire/commands"
	"github.com/lk2023060901/typewire-go/pkg/log"
)

func main() {
	err := commands.NewRootCmd().Execute()
	_ = log.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
