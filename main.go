package main

import "github.com/quocvuong92/ai-shell/cmd"

func main() {
	cmd.Execute()
}
