package main

import "github.com/paxcalpt/taskrepo/pkg/cli"

func main() {
	cli.Execute()
}
