// main is the entry point of the barriernavi CLI.
package main

import (
	"github.com/huangsam/barriernavi/cmd"
	"github.com/huangsam/barriernavi/internal/contract"
	"github.com/huangsam/barriernavi/internal/iocache"
)

func main() {
	defer iocache.CloseCaching()

	if err := cmd.Execute(); err != nil {
		iocache.CloseCaching()
		contract.LogFatal("barriernavi failed", err)
	}
}
