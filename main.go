package main

import (
	"github.com/anoixa/eatinator/cmd"
)

func main() {
	cmd.Execute()
}
