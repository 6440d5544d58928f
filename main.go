package main

import "github.com/Norgate-AV/cargo-xwin/cmd"

func main() {
	cmd.Execute()
}
