package main

import "github.com/ValentinKolb/dorea/cmd"

func main() {
	cmd.Execute()
}
