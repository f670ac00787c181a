package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ramonehamilton/spell-bingo/internal/config"
	"github.com/ramonehamilton/spell-bingo/internal/ipc"
)

func runWatchCommand(cfg *config.Config, args []string) {
	fs := newFlagSet("watch", "")
	addr := fs.String("addr", cfg.Server.Addr, "Server address")
	events := fs.String("events", "", "Comma-separated event types or families to show, e.g. replay:,game:archived")
	parseArgs(fs, args, 0)

	reconnect, err := cfg.GetReconnectDelay()
	if err != nil {
		log.Fatalf("Invalid reconnect delay: %v", err)
	}

	opts := ipc.Options{
		URL:            "ws://" + *addr + "/ws",
		ReconnectDelay: reconnect,
	}
	for _, e := range strings.Split(*events, ",") {
		if e = strings.TrimSpace(e); e != "" {
			opts.Events = append(opts.Events, e)
		}
	}

	client := ipc.NewClient(opts)
	client.On("*", func(ev ipc.Event) {
		fmt.Printf("%s  %-22s %s\n", ev.Timestamp.Local().Format("15:04:05.000"), ev.Type, string(ev.Data))
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", opts.URL)
	if err := client.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("Error: %v", err)
	}
}
