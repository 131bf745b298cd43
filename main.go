package main

import "burstcam/cmd"

func main() {
	cmd.Execute()
}
