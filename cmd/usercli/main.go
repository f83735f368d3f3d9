// Package main provides the user CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/osa030/guildbox/internal/api/rpc"
	"github.com/osa030/guildbox/internal/app/notification"
	"github.com/osa030/guildbox/internal/domain/track"
)

var (
	app    = kingpin.New("guildbox-usercli", "guildbox user client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").Envar("GUILDBOX_SERVER").String()

	// enqueue command
	enqueueCmd     = app.Command("enqueue", "Queue a URL or search query").Alias("play")
	enqueueChannel = enqueueCmd.Arg("channel", "Channel ID").Required().String()
	enqueueQuery   = enqueueCmd.Arg("locator", "URL or search words").Required().Strings()
	enqueueName    = enqueueCmd.Flag("as", "Requester display name").Envar("USER").String()
	enqueueID      = enqueueCmd.Flag("id", "Requester ID").String()

	// queue command
	queueCmd     = app.Command("queue", "Show upcoming tracks")
	queueChannel = queueCmd.Arg("channel", "Channel ID").Required().String()
	queueLimit   = queueCmd.Flag("limit", "Maximum entries").Int()

	// history command
	historyCmd     = app.Command("history", "Show played tracks")
	historyChannel = historyCmd.Arg("channel", "Channel ID").Required().String()
	historyLimit   = historyCmd.Flag("limit", "Maximum entries").Int()

	// now command
	nowCmd     = app.Command("now", "Show the playing track")
	nowChannel = nowCmd.Arg("channel", "Channel ID").Required().String()

	// events command
	eventsCmd     = app.Command("events", "Follow playback events")
	eventsChannel = eventsCmd.Arg("channel", "Channel ID (all channels when omitted)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := rpc.NewListenerServiceClient(http.DefaultClient, *server)
	ctx := context.Background()

	switch command {
	case enqueueCmd.FullCommand():
		enqueue(ctx, client)
	case queueCmd.FullCommand():
		listing(client.ListQueue(ctx, connect.NewRequest(&rpc.ListRequest{ChannelID: *queueChannel, Limit: *queueLimit})))
	case historyCmd.FullCommand():
		listing(client.ListHistory(ctx, connect.NewRequest(&rpc.ListRequest{ChannelID: *historyChannel, Limit: *historyLimit})))
	case nowCmd.FullCommand():
		now(ctx, client, *nowChannel)
	case eventsCmd.FullCommand():
		subscribe(ctx, client, *eventsChannel)
	}
}

func fail(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}

func enqueue(ctx context.Context, client *rpc.ListenerServiceClient) {
	res, err := client.Enqueue(ctx, connect.NewRequest(&rpc.EnqueueRequest{
		ChannelID:     *enqueueChannel,
		Locator:       strings.Join(*enqueueQuery, " "),
		RequesterID:   *enqueueID,
		RequesterName: *enqueueName,
	}))
	if err != nil {
		fail(err)
	}
	resp := res.Msg

	fmt.Printf("Success: %s\n", resp.Message)
	if resp.Count > 1 {
		for i, e := range resp.Entries {
			fmt.Printf("  %d: %s\n", i+1, e)
		}
	}
}

func listing(resp *connect.Response[rpc.ListResponse], err error) {
	if err != nil {
		fail(err)
	}
	if resp.Msg.Listing.Total == 0 {
		fmt.Println("Nothing here")
		return
	}
	fmt.Println(resp.Msg.Text)
	fmt.Printf("(%d total)\n", resp.Msg.Listing.Total)
}

func now(ctx context.Context, client *rpc.ListenerServiceClient, channel string) {
	res, err := client.NowPlaying(ctx, connect.NewRequest(&rpc.NowPlayingRequest{ChannelID: channel}))
	if err != nil {
		fail(err)
	}
	resp := res.Msg
	if !resp.Playing {
		fmt.Printf("Nothing playing (%s)\n", resp.State)
		return
	}
	fmt.Printf("Now playing: %s\n", resp.Summary)
	printTrack(resp.Track)
}

func subscribe(ctx context.Context, client *rpc.ListenerServiceClient, channel string) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stream, err := client.SubscribeNotifications(ctx, connect.NewRequest(&rpc.SubscribeNotificationsRequest{ChannelID: channel}))
	if err != nil {
		fail(err)
	}

	fmt.Println("Subscribed to events. Press Ctrl+C to exit.")

	// Receive notifications
	for stream.Receive() {
		printNotification(stream.Msg())
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Stream error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nUnsubscribed")
}

func printNotification(n *notification.Notification) {
	fmt.Printf("\n[Sequence: %d] === %s ===\n", n.SequenceNo, strings.ToUpper(strings.ReplaceAll(n.Type, "_", " ")))
	if n.ChannelID != "" {
		fmt.Printf("  Channel: %s\n", n.ChannelID)
	}
	if n.State != "" {
		fmt.Printf("  State: %s\n", n.State)
	}
	if n.Request != "" {
		fmt.Printf("  Request: %s\n", n.Request)
	}
	if n.Error != "" {
		fmt.Printf("  Error: %s\n", n.Error)
	}
	printTrack(n.Track)
}

func printTrack(t *notification.Track) {
	if t == nil {
		return
	}
	fmt.Printf("  Title: %s\n", t.Title)
	fmt.Printf("  URL: %s\n", t.PageURL)
	if t.Duration > 0 {
		fmt.Printf("  Duration: %s\n", track.FormatDuration(t.Duration))
	}
	if t.Uploader != "" {
		fmt.Printf("  Uploader: %s\n", t.Uploader)
	}
	if t.RequestedBy != "" {
		fmt.Printf("  Requested by: %s\n", t.RequestedBy)
	}
}
