package main

import "github.com/killallgit/usechat/cmd"

func main() {
	cmd.Execute()
}
