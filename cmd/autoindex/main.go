package main

import "github.com/mvp-joe/autoindex/internal/cli"

func main() {
	cli.Execute()
}
