package main

import "github.com/ailice/ailice/cmd"

func main() {
	cmd.Execute()
}
