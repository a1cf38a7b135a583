package main

import "github.com/crown_ledger/cmd"

func main() {
	cmd.Execute()
}
