package main

import "github.com/nextlevelbuilder/crewd/cmd"

func main() {
	cmd.Execute()
}
