package main

import "github.com/luki/heatlog/cmd/heatlog/commands"

func main() {
	commands.Execute()
}
