package main

import (
	cmd "github.com/kerbaras/pocketepub/cmd/pocketepub"
)

func main() {
	cmd.Execute()
}
