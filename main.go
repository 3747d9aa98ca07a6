package main

import "github.com/christopherhouse/azure-devops-ai-agent/cmd"

func main() {
	cmd.Execute()
}
