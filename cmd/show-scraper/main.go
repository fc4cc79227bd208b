package main

import "github.com/pfrederiksen/show-scraper/internal/cli"

var version = "dev"

func main() {
	cli.Version = version
	cli.Execute()
}
