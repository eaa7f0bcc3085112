package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hadirapp/hadir/core/attendee"
	"github.com/hadirapp/hadir/core/scanqueue"
	"github.com/hadirapp/hadir/storage/queuefile"
)

// The scanner app is a door-station REPL: each line typed (or fed by a
// barcode scanner in keyboard-wedge mode) is a check-in submission. Scans
// made while the API is unreachable are queued on disk and replayed with
// "sync" once connectivity returns.
func main() {
	server := flag.String("server", "http://localhost:8000", "Base URL of the API server.")
	token := flag.String("token", "", "Bearer token of the operator account.")
	queuePath := flag.String("queue", defaultQueuePath(), "Path of the offline scan queue file.")
	flag.Parse()

	if *token == "" {
		log.Fatal("a -token is required")
	}

	resolver := newAPIResolver(*server, *token)
	queue := scanqueue.New(queuefile.New(*queuePath), resolver)

	ctx := context.Background()
	if pending, err := queue.Pending(); err == nil && pending > 0 {
		fmt.Printf("%d queued scan(s) pending; type \"sync\" to replay\n", pending)
	}

	fmt.Println("Ready. Scan a code, or type \"sync\", \"pending\" or \"quit\".")
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
		case "quit", "exit":
			return
		case "pending":
			pending, err := queue.Pending()
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("%d queued scan(s)\n", pending)
		case "sync":
			stats, err := queue.Drain(ctx)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("synced: %d resolved, %d dropped, %d retained\n", stats.Resolved, stats.Dropped, stats.Retained)
		default:
			submit(ctx, queue, resolver, line)
		}
	}
	if err := in.Err(); err != nil {
		log.Fatal(err)
	}
}

func submit(ctx context.Context, queue *scanqueue.Queue, resolver *apiResolver, code string) {
	// try directly first so we can show who was checked in
	res, err := resolver.checkin(ctx, code)
	if err == nil {
		if res.Status == attendee.CheckinAlreadyChecked {
			fmt.Printf("ALREADY CHECKED IN: %s\n", res.Attendee.Name)
		} else {
			fmt.Printf("OK: %s (%s, seat %s)\n", res.Attendee.Name, res.Attendee.Governorate, res.Attendee.SeatClass)
		}
		return
	}
	if !scanqueue.IsUnavailable(err) {
		fmt.Printf("rejected: %v\n", err)
		return
	}

	queued, qerr := queue.Submit(ctx, code, "")
	if qerr != nil {
		fmt.Printf("error: %v\n", qerr)
		return
	}
	if queued {
		fmt.Println("offline: scan queued for sync")
	}
}

func defaultQueuePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "hadir", "scanqueue.json")
}
