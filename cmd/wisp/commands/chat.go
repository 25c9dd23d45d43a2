package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wisp/internal/domain"
)

// chatCmd dials the relay as username and runs a minimal line-oriented
// chat loop: "/add <peer>" starts a session with a new peer, and
// "<peer>: <message>" sends to an existing one. Incoming messages print on
// their own line as they arrive.
func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <username>",
		Short: "Connect to the relay and exchange messages with peers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			usernameValue := domain.Username(args[0])

			mgr, err := appCtx.Connect(passphrase, usernameValue)
			if err != nil {
				return fmt.Errorf("connecting to relay: %w", err)
			}

			go func() {
				for {
					peer, plaintext, ts, err := mgr.Receive()
					if err != nil {
						fmt.Printf("\n[error receiving from %s: %v]\n> ", peer, err)
						continue
					}
					when := time.Unix(ts, 0).Format("15:04:05")
					fmt.Printf("\n[%s] %s: %s\n> ", when, peer, plaintext)
				}
			}()

			fmt.Println("Connected. Commands: /add <peer>, <peer>: <message>, /quit")
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "/quit":
					return nil
				case strings.HasPrefix(line, "/add "):
					peer := domain.Username(strings.TrimSpace(strings.TrimPrefix(line, "/add ")))
					if err := mgr.AddPeer(peer); err != nil {
						fmt.Printf("add peer failed: %v\n", err)
					} else {
						fmt.Printf("session started with %s\n", peer)
					}
				default:
					peer, msg, ok := strings.Cut(line, ": ")
					if !ok {
						fmt.Println("expected '/add <peer>' or '<peer>: <message>'")
						break
					}
					if err := mgr.Send(domain.Username(peer), []byte(msg)); err != nil {
						fmt.Printf("send failed: %v\n", err)
					}
				}
				fmt.Print("> ")
			}
			return scanner.Err()
		},
	}
	return cmd
}
