package main

import "github.com/flowershop/admin-api/cmd/flowershopctl/commands"

func main() {
	commands.Execute()
}
