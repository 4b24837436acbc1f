package main

import "github.com/vietddude/ledgermirror/internal/cli"

func main() {
	cli.Execute()
}
