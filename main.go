package main

import "mailpilot/cmd"

func main() {
	cmd.Execute()
}
