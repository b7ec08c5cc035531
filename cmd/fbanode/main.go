package main

import (
	"runtime"

	"github.com/bosnet-cast/fbanode/cmd/fbanode/cmd"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	cmd.Execute()
}
