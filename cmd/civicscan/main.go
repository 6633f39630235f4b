package main

import "github.com/civicscan/civicscan/internal/cli"

func main() {
	cli.Execute()
}
