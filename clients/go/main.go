// chit-chat CLI - command line client for ephemeral rooms
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/bert4lyf/chit-chat/clients/go/chitchat"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	baseURL := os.Getenv("CHITCHAT_URL")
	client := chitchat.NewClient(baseURL)
	cmd := os.Args[1]

	switch cmd {
	case "create":
		room, err := client.CreateRoom()
		exitOnError(err)
		fmt.Printf("Room: %s (self-destructs in %ds)\n", room.ID, room.TTL)

	case "ttl":
		requireArgs(3, "Usage: chitchat ttl <room_id>")
		ttl, err := client.TTL(os.Args[2])
		exitOnError(err)
		fmt.Printf("%ds remaining\n", ttl)

	case "read":
		requireArgs(3, "Usage: chitchat read <room_id>")
		messages, err := client.GetMessages(os.Args[2])
		exitOnError(err)
		for _, msg := range messages {
			ts := time.UnixMilli(msg.Timestamp).Format("15:04:05")
			fmt.Printf("[%s] %s: %s\n", ts, msg.Sender, msg.Text)
		}

	case "post":
		requireArgs(5, "Usage: chitchat post <room_id> <sender> <message>")
		resp, err := client.PostMessage(os.Args[2], os.Args[3], os.Args[4])
		exitOnError(err)
		fmt.Printf("Posted: %s\n", resp.ID)

	case "destroy":
		requireArgs(3, "Usage: chitchat destroy <room_id>")
		exitOnError(client.DestroyRoom(os.Args[2]))
		fmt.Println("Destroyed.")

	case "watch":
		requireArgs(3, "Usage: chitchat watch <room_id>")
		roomID := os.Args[2]
		err := client.Subscribe(context.Background(), roomID, func(evt chitchat.Event) {
			if evt.Kind == "chat.destroy" {
				fmt.Println("-- room destroyed --")
				return
			}
			messages, err := client.GetMessages(roomID)
			if err != nil || len(messages) == 0 {
				return
			}
			last := messages[len(messages)-1]
			fmt.Printf("%s: %s\n", last.Sender, last.Text)
		})
		exitOnError(err)

	case "health":
		resp, err := client.Health()
		exitOnError(err)
		printJSON(resp)

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`chit-chat CLI - ephemeral self-destructing rooms

Usage: chitchat <command> [options]

Commands:
  create                            Create a room
  ttl <room_id>                     Seconds until self-destruct
  read <room_id>                    Read messages
  post <room_id> <sender> <msg>     Post a message
  watch <room_id>                   Follow the room live
  destroy <room_id>                 Destroy the room now
  health                            Check server health

Environment:
  CHITCHAT_URL   Server URL (default: http://localhost:8080)`)
}

func requireArgs(n int, msg string) {
	if len(os.Args) < n {
		fmt.Fprintln(os.Stderr, msg)
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
