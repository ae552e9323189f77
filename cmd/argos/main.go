package main

import "github.com/argos-watch/argos/cmd/argos/cmd"

func main() {
	cmd.Execute()
}
