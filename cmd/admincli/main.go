// Package main provides the admin CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/guildbox/internal/api/rpc"
)

var (
	app    = kingpin.New("guildbox-admincli", "guildbox admin client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").Envar("GUILDBOX_SERVER").String()

	// status command
	statusCmd = app.Command("status", "List live sessions")

	// clear command
	clearCmd     = app.Command("clear", "Clear a channel's queue")
	clearChannel = clearCmd.Arg("channel", "Channel ID").Required().String()

	// shuffle command
	shuffleCmd     = app.Command("shuffle", "Shuffle a channel's queue")
	shuffleChannel = shuffleCmd.Arg("channel", "Channel ID").Required().String()

	// skip command
	skipCmd     = app.Command("skip", "Skip the current track")
	skipChannel = skipCmd.Arg("channel", "Channel ID").Required().String()

	// stop command
	stopCmd     = app.Command("stop", "Stop a channel's session")
	stopChannel = stopCmd.Arg("channel", "Channel ID").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := rpc.NewAdminServiceClient(http.DefaultClient, *server)
	ctx := context.Background()

	switch command {
	case statusCmd.FullCommand():
		status(ctx, client)
	case clearCmd.FullCommand():
		action(client.Clear(ctx, channel(*clearChannel)))
	case shuffleCmd.FullCommand():
		action(client.Shuffle(ctx, channel(*shuffleChannel)))
	case skipCmd.FullCommand():
		action(client.Skip(ctx, channel(*skipChannel)))
	case stopCmd.FullCommand():
		action(client.StopSession(ctx, channel(*stopChannel)))
	}
}

func channel(id string) *connect.Request[rpc.ChannelRequest] {
	return connect.NewRequest(&rpc.ChannelRequest{ChannelID: id})
}

func status(ctx context.Context, client *rpc.AdminServiceClient) {
	resp, err := client.GetStatus(ctx, connect.NewRequest(&rpc.GetStatusRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n=== CURRENT STATUS ===")
	fmt.Printf("Sessions: %d\n", resp.Msg.Count)
	fmt.Printf("Event subscribers: %d\n", resp.Msg.Subscribers)

	for _, s := range resp.Msg.Sessions {
		fmt.Printf("\nChannel %s:\n", s.ChannelID)
		fmt.Printf("  Session ID: %s\n", s.SessionID)
		fmt.Printf("  Phase: %s\n", s.Phase)
		fmt.Printf("  State: %s\n", s.State)
		fmt.Printf("  Queue Size: %d\n", s.QueueLen)
		fmt.Printf("  Created: %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		if s.Current != "" {
			fmt.Printf("  Now Playing: %s\n", s.Current)
		} else {
			fmt.Println("  No track currently playing")
		}
	}
	fmt.Println()
}

func action(resp *connect.Response[rpc.ActionResponse], err error) {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if resp.Msg.Success {
		fmt.Println(resp.Msg.Message)
	} else {
		fmt.Printf("Failed: %s\n", resp.Msg.Message)
	}
}
