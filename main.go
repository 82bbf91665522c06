package main

import "github.com/eyuksel/reimbursement-api/cmd"

func main() {
	cmd.Execute()
}
