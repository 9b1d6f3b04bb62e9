package main

import (
	"github.com/carlo/audit-trail/cmd/cli/auth"
	"github.com/carlo/audit-trail/cmd/cli/entries"
	"github.com/carlo/audit-trail/cmd/cli/root"
)

func main() {
	auth.InitAuth(root.GetRoot())
	entries.InitEntries(root.GetRoot())
	root.Execute()
}
