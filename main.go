package main

import "github.com/hoppxi/wilux/internal/cmd"

func main() {
	cmd.Execute()
}
