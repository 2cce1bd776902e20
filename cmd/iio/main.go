package main

import "github.com/OpenTraceLab/OpenTraceIIO/cmd/iio/cmd"

func main() {
	cmd.Execute()
}
