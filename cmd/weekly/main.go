// Package main is the entry point for the weekly CLI tool.
package main

import (
	"github.com/harborlight/weekly/internal/cmd"
)

func main() {
	cmd.Execute()
}
