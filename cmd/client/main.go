// Command client joins an UNO table from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/client"
	"github.com/VijayPranav-svg/UNO-Multiuser-Card-Game-With-Networking-Capability/internal/protocol"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:10000", "server address")
	name := flag.String("name", "", "name to play under (default: PlayerN)")
	token := flag.String("token", os.Getenv("UNO_TOKEN"), "signed token, when the table requires one")
	passphrase := flag.String("passphrase", os.Getenv("UNO_PASSPHRASE"), "table passphrase, when the table is private")
	verbose := flag.Bool("v", false, "log protocol details")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.WarnLevel)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := net.Dialer{Timeout: 5 * time.Second}
	stream, err := d.DialContext(ctx, "tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "uno-client:", err)
		os.Exit(1)
	}
	fmt.Println("Connected to server", *addr)

	c := client.New(os.Stdin, os.Stdout, log)
	_, err = c.Play(ctx, stream, protocol.Hello{Identity: *name, Token: *token, Passphrase: *passphrase})
	switch {
	case err == nil:
	case errors.Is(err, client.ErrServerClosed):
		fmt.Println("Server closed connection.")
	default:
		fmt.Fprintln(os.Stderr, "uno-client:", err)
		os.Exit(1)
	}
}
