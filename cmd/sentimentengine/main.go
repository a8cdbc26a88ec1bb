package main

import "sentiment-engine/internal/cli"

func main() {
	cli.Execute()
}
