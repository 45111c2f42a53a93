package main

import (
	"fmt"
	"os"

	"github.com/rackhaus/rackd/internal/cli"
	"github.com/rackhaus/rackd/internal/common/logtrace"
)

func main() {
	logtrace.InitLogger()
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
