package main

import (
	"pairTrimmer/cmd"
)

func main() {
	cmd.Execute()
}
