// Admin tool for inspecting and draining the dead-letter queue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	redisclient "github.com/vietddude/relay/internal/infra/redis"
)

func main() {
	redisURL := flag.String("redis", "redis://localhost:6379/0", "Redis URL")
	webhookID := flag.String("webhook", "", "Webhook id to inspect")
	drain := flag.Bool("drain", false, "Remove listed dead letters")
	flag.Parse()

	if *webhookID == "" {
		fmt.Fprintln(os.Stderr, "usage: dead_letters -webhook <id> [-drain]")
		os.Exit(1)
	}

	client, err := redisclient.NewClient(redisclient.Config{URL: *redisURL})
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect redis: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx := context.Background()
	dlq := redisclient.NewDeadLetterQueue(client)

	count, err := dlq.Count(ctx, *webhookID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "count dead letters: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("webhook %s: %d dead letters\n", *webhookID, count)

	for {
		dl, err := dlq.Next(ctx, *webhookID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read dead letter: %v\n", err)
			os.Exit(1)
		}
		if dl == nil {
			break
		}
		fmt.Printf("  %s attempts=%d failed_at=%s reason=%q\n",
			dl.Delivery.ID, dl.Delivery.Attempts+1, dl.FailedAt.Format("2006-01-02 15:04:05"), dl.Reason)

		if !*drain {
			break
		}
		if err := dlq.Remove(ctx, *webhookID, dl.Delivery.ID); err != nil {
			fmt.Fprintf(os.Stderr, "remove dead letter: %v\n", err)
			os.Exit(1)
		}
	}
}
