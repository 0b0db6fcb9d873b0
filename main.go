package main

import "cinemax/cmd"

func main() {
	cmd.Execute()
}
