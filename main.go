package main

import "github.com/cockroachdb/indexverify/cmd"

func main() {
	cmd.Execute()
}
