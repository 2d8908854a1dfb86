package main

import "github.com/mpalmer/tsfill/internal/cli"

func main() {
	cli.Execute()
}
