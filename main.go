package main

import "github.com/batchkv/batchkv/cmd"

func main() {
	cmd.Execute()
}
