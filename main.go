package main

import "github.com/KaramelBytes/csvrepair-cli/cmd"

func main() {
	cmd.Execute()
}
