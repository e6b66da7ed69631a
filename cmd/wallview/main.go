package main

import "wallview/internal/cli"

func main() {
	cli.Execute()
}
