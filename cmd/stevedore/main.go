package main

import "github.com/stevedore-deploy/stevedore/cmd/stevedore/cmd"

func main() {
	cmd.Execute()
}
