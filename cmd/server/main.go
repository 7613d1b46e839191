package main

import "github.com/Skotchmaster/rbac_auth/cmd/server/cmd"

func main() {
	cmd.Execute()
}
