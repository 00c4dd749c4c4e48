package main

import "reclink/cmd"

func main() {
	cmd.Execute()
}
