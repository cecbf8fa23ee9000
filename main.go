package main

import (
	"github.com/bnema/envrefresh/cmd"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.ExecuteCLI(version, commit, date)
}
