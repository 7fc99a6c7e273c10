package main

import (
	"fmt"
	"log"
	"os"

	"echoleaf/echo"
)

const defaultMessage = "hello from client"

// Usage: client [ADDR] [MESSAGE]
// ADDR defaults to the ECHO_ADDR environment variable, then 127.0.0.1:4000.
func main() {
	addr := os.Getenv("ECHO_ADDR")
	if addr == "" {
		addr = echo.DefaultAddr
	}
	message := defaultMessage

	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	if len(os.Args) > 2 {
		message = os.Args[2]
	}

	log.Printf("Connecting to %s...", addr)
	client, err := echo.Dial(addr)
	if err != nil {
		log.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	log.Printf("Sending: %q", message)
	response, err := client.Exchange([]byte(message))
	if err != nil {
		log.Fatalf("Exchange failed: %v", err)
	}

	fmt.Printf("recv: %q\n", response)
}
