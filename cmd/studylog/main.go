package main

import "github.com/example/studylog/cmd"

func main() {
	cmd.Execute()
}
