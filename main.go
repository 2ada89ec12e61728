package main

import "github.com/pithakchhorn/portfolio-api/commands"

func main() {
	commands.Execute()
}
