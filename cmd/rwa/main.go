// cmd/rwa/main.go
package main

import (
	"os"

	"github.com/javajoker/rwa-backend/internal/cli"
	_ "github.com/javajoker/rwa-backend/internal/cli/command"
)

func main() {
	c, err := cli.New(os.Args[1:])
	if err != nil {
		cli.Errof("Error: %s\n", err.Error())
		os.Exit(1)
	}

	if err := c.Run(); err != nil {
		cli.Errof("Error: %s\n", err.Error())
		os.Exit(1)
	}
}
