package main

import "github.com/bcdannyboy/cmdty/cmd"

func main() {
	cmd.Execute()
}
