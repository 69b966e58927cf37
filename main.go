package main

import "github.com/monica-concierge/monica/cmd"

func main() {
	cmd.Execute()
}
