package main

import "integrity-monitor/cmd"

func main() {
	cmd.Execute()
}
