// Package main provides a CLI client for the Aurora server, for testing.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
)

var (
	app    = kingpin.New("aurora-djcli", "Aurora playback client for testing")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()

	// queue command
	queueCmd       = app.Command("queue", "Queue a track on a channel")
	queueChannel   = queueCmd.Arg("channel", "Channel ID").Required().String()
	queueRequester = queueCmd.Arg("requester", "Requester user ID").Required().String()
	queueQuery     = queueCmd.Arg("query", "Track query (title, URL or URI)").Required().Strings()
	queueName      = queueCmd.Flag("name", "Requester display name").String()
	queueNotify    = queueCmd.Flag("notify", "Chat channel ID for announcements").String()

	// pause / resume / stop / status commands
	pauseCmd      = app.Command("pause", "Pause the current track")
	pauseChannel  = pauseCmd.Arg("channel", "Channel ID").Required().String()
	resumeCmd     = app.Command("resume", "Resume the paused track")
	resumeChannel = resumeCmd.Arg("channel", "Channel ID").Required().String()
	stopCmd       = app.Command("stop", "Stop playback and clear the queue")
	stopChannel   = stopCmd.Arg("channel", "Channel ID").Required().String()
	statusCmd     = app.Command("status", "Show channel playback status")
	statusChannel = statusCmd.Arg("channel", "Channel ID").Required().String()

	// skip command
	skipCmd       = app.Command("skip", "Vote to skip the current track")
	skipChannel   = skipCmd.Arg("channel", "Channel ID").Required().String()
	skipRequester = skipCmd.Arg("requester", "Voter user ID").Required().String()

	// volume command
	volumeCmd     = app.Command("volume", "Set the volume of the current track")
	volumeChannel = volumeCmd.Arg("channel", "Channel ID").Required().String()
	volumeValue   = volumeCmd.Arg("percent", "Volume percentage (0-200)").Required().Int()

	// watch command
	watchCmd = app.Command("watch", "Stream playback notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case queueCmd.FullCommand():
		post(channelPath(*queueChannel, "queue"), map[string]any{
			"query":             strings.Join(*queueQuery, " "),
			"requester_id":      *queueRequester,
			"requester_name":    *queueName,
			"notify_channel_id": *queueNotify,
		})
	case pauseCmd.FullCommand():
		post(channelPath(*pauseChannel, "pause"), map[string]any{})
	case resumeCmd.FullCommand():
		post(channelPath(*resumeChannel, "resume"), map[string]any{})
	case skipCmd.FullCommand():
		post(channelPath(*skipChannel, "skip"), map[string]any{"requester_id": *skipRequester})
	case stopCmd.FullCommand():
		post(channelPath(*stopChannel, "stop"), map[string]any{})
	case volumeCmd.FullCommand():
		post(channelPath(*volumeChannel, "volume"), map[string]any{"percent": *volumeValue})
	case statusCmd.FullCommand():
		get(channelPath(*statusChannel, "status"))
	case watchCmd.FullCommand():
		watch()
	}
}

func channelPath(channel, op string) string {
	return fmt.Sprintf("%s/v1/channels/%s/%s", *server, channel, op)
}

func post(url string, body map[string]any) {
	payload, err := json.Marshal(body)
	if err != nil {
		fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func get(url string) {
	resp, err := http.Get(url)
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(err)
	}
	if resp.StatusCode >= 400 {
		fmt.Printf("Error (%d): %s\n", resp.StatusCode, strings.TrimSpace(string(data)))
		os.Exit(1)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		fmt.Println("OK")
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(strings.TrimSpace(string(data)))
		return
	}
	fmt.Println(pretty.String())
}

func watch() {
	resp, err := http.Get(*server + "/v1/events")
	if err != nil {
		fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Printf("Error (%d)\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("Watching playback events (Ctrl-C to stop)...")
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var n struct {
			Sequence  uint64 `json:"sequence"`
			ChannelID string `json:"channel_id"`
			Kind      string `json:"kind"`
			Message   string `json:"message"`
		}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &n); err != nil {
			continue
		}
		fmt.Printf("[%d] %s %s: %s\n", n.Sequence, n.ChannelID, n.Kind, n.Message)
	}
	if err := scanner.Err(); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Printf("Error: %v\n", err)
	os.Exit(1)
}
