package main

import "github.com/urizennnn/gh-activity/cmd"

func main() {
	cmd.Execute()
}
