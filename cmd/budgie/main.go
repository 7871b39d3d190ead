package main

import "budgie/cmd/budgie/cmds"

// version can be set during build with -ldflags
var version = "dev"

func main() {
	cmds.SetVersion(version)
	cmds.Execute()
}
