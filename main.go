package main

import "github.com/repology/repology-linkchecker/internal/cmd"

func main() {
	cmd.Main()
}
