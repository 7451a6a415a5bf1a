package main

import "github.com/shazhou-ww/casfa-sub008/cmd/casfa/cmd"

func main() {
	cmd.Execute()
}
