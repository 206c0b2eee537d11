package main

import (
	"github.com/hhkbp2/yacs"
)

func main() {
	yacs.Main()
}
