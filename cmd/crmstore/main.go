// Command crmstore maintains the offline CRM store.
package main

import "github.com/mesh-intelligence/crmstore/internal/cli"

func main() {
	cli.Execute()
}
