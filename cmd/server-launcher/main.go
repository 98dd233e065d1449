package main

import "github.com/oshokin/server-launcher/cmd/server-launcher/cmd"

func main() {
	cmd.Execute()
}
