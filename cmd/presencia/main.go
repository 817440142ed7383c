package main

import "github.com/jza-lab/tpi-pyme-alimenticia-sub000/cmd/presencia/cli"

func main() {
	cli.Execute()
}
