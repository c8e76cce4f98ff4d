package main

import "github.com/dropscope/dropscope/internal/cli"

func main() {
	cli.Execute()
}
