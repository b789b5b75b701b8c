package main

import "github.com/HiteshGorana/Leo/cmd"

func main() {
	cmd.Execute()
}
