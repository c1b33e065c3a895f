package main

import "github.com/thom899g/autonomous-adaptive-trading-ecosystem--aate/internal/cli"

func main() {
	cli.Execute()
}
