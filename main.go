package main

import "nathanbeddoewebdev/promptsync/cmd"

func main() {
	cmd.Execute()
}
