package main

import "github.com/emiliopalmerini/devwatch/internal/cli"

func main() {
	cli.Execute()
}
