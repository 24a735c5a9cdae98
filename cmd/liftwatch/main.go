package main

import "github.com/liftwatch/liftwatch/internal/cli"

func main() {
	cli.Execute()
}
