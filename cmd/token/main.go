// Command token prints credentials for a protected table: a signed player
// token, or the bcrypt hash to configure as UNO_PASSPHRASE_HASH.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/auth"
)

func main() {
	_ = godotenv.Load()

	secret := flag.String("secret", os.Getenv("UNO_JWT_SECRET"), "signing secret shared with the server")
	issuer := flag.String("issuer", os.Getenv("UNO_JWT_ISSUER"), "token issuer")
	name := flag.String("name", "", "player identity to sign")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	hash := flag.String("hash-passphrase", "", "print the bcrypt hash of this passphrase instead")
	flag.Parse()

	if err := run(*secret, *issuer, *name, *hash, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "uno-token:", err)
		os.Exit(1)
	}
}

func run(secret, issuer, name, passphrase string, ttl time.Duration) error {
	if passphrase != "" {
		h, err := auth.HashPassphrase(passphrase)
		if err != nil {
			return err
		}
		fmt.Println(h)
		return nil
	}
	if secret == "" {
		return errors.New("-secret or UNO_JWT_SECRET is required")
	}
	tok, err := auth.IssueToken(secret, issuer, name, ttl)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
