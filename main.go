package main

import (
	"moodmuse/cmd"
)

func main() {
	cmd.Execute()
}
