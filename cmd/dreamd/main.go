package main

import "github.com/abhiarc/Dream-interpreter/internal/cli"

func main() {
	cli.Execute()
}
