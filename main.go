package main

import "github.com/sajjad-MoBe/NumAPI/cmd"

func main() {
	cmd.ExecuteServer()
}
