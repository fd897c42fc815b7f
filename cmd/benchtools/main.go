package main

import "github.com/altiuslab/benchtools/cmd/benchtools/cmd"

func main() {
	cmd.Execute()
}
