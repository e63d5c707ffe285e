package main

import "vimeoscan/cmd"

func main() {
	cmd.Execute()
}
