package main

import "comply-scheduler.com/comply-scheduler/cmd"

func main() {
	cmd.Execute()
}
