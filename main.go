package main

import "github.com/RyanBlaney/sonido-catalog/cmd"

func main() {
	cmd.Execute()
}
