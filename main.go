package main

import "TuneBox/cmd"

func main() {
	cmd.Execute()
}
