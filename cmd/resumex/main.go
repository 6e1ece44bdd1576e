package main

import "github.com/dgallion1/resumex/internal/cli"

func main() {
	cli.Execute()
}
