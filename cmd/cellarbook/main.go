package main

import "cellarbook/internal/cmd"

func main() {
	cmd.Execute()
}
