package main

import "gigcal/cmd"

func main() {
	cmd.Execute()
}
