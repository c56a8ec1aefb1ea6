package main

import "dailytasks/internal/cli"

func main() {
	cli.Execute()
}
