package main

import "github.com/obarbosa/mercadinho/cmd"

func main() {
	cmd.Start()
}
