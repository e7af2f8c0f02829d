package main

import "github.com/OpenTraceLab/jtagvpi/cmd/jtagvpi/cmd"

func main() {
	cmd.Execute()
}
