// Command genkey prints a fresh session encryption key suitable for
// security.encryption_key: 32 random bytes as 64 hex chars.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
)

func main() {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
	fmt.Println(hex.EncodeToString(key))
}
