package main

import "github.com/grip-gate/gripgate/cmd/gripgate/cmd"

func main() {
	cmd.Execute()
}
