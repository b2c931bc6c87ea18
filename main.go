package main

import "github.com/iksnae/creator-chat/cmd"

func main() {
	cmd.Execute()
}
