package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "todoagent"}

	root.AddCommand(serveCMD(), chatCMD())
	_ = root.Execute()
}
