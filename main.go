package main

import (
	"os"

	"github.com/bytelox/bytelox/cmd"
	e "github.com/bytelox/bytelox/errors"
)

func main() {
	if err := cmd.App().Execute(); err != nil {
		os.Exit(e.ExUsage)
	}
}
