package main

import (
	"fmt"
	"os"

	"github.com/flowsend/outreach-server-go/internal/util"
)

// Generates an API token for a new account and prints both the token (hand
// this to the user) and its hash (store this in accounts.api_token_hash).
func main() {
	token, err := util.GenerateToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("token: %s\n", token)
	fmt.Printf("hash:  %s\n", util.HashToken(token))
}
