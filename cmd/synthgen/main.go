package main

import "github.com/dbsmedya/synthgen/cmd/synthgen/cmd"

func main() {
	cmd.Execute()
}
