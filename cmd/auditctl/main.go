package main

import "github.com/inspeksi/audit-dashboard/internal/cli"

func main() {
	cli.Execute()
}
