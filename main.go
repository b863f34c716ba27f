package main

import (
	"github.com/CasteSan/investment-tracker/cmd"
)

func main() {
	cmd.Execute()
}
