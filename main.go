package main

import "github.com/tether-sh/tether/cmd"

func main() {
	cmd.Execute()
}
