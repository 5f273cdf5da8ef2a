package main

import "github.com/mailsweep/mailsweep/internal/cli"

func main() {
	cli.Execute()
}
