package main

import "myrepo/internal/cli"

func main() {
	cli.Execute()
}
