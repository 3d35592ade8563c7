// Package main demonstrates observing a gateway: a subscriber attaching
// mid-conversation receives a snapshot of everything so far, then the
// live event stream.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/felixgeelhaar/gateway-go/domain/event"
	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/backend"
	gateway "github.com/felixgeelhaar/gateway-go/interfaces/api"
)

func main() {
	mock := backend.NewMockBackend(
		backend.TextResponse("Noted."),
		backend.ToolCallResponse(message.ToolCall{ID: "call_1", Name: "clock"}),
		backend.TextResponse("It is time."),
	)

	clock := gateway.NewToolBuilder("clock").
		WithDescription("Returns the current time").
		WithHandler(func(ctx context.Context, _ json.RawMessage) (tool.Result, error) {
			out, _ := json.Marshal(time.Now().Format(time.RFC3339))
			return tool.NewResult(out), nil
		}).
		MustBuild()

	gw, err := gateway.New(
		gateway.WithBackend(mock),
		gateway.WithSystemPrompt("You are punctual."),
		gateway.WithTool(clock),
		gateway.WithConfigInfo(map[string]string{"name": "observer-example"}),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer gw.Close()

	ctx := context.Background()

	// Some history accumulates before anyone watches.
	if _, _, err := gw.SendMessage(ctx, "Remember that I like punctuality."); err != nil {
		log.Fatal(err)
	}

	// Attach mid-conversation: the snapshot closes the gap.
	snapshot, events, err := gw.Subscribe(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("=== Observer Example ===")
	fmt.Printf("Snapshot: %d messages, %d tools, config %v\n",
		len(snapshot.Messages), len(snapshot.Tools), snapshot.Config)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for e := range events {
			switch e.Type {
			case event.TypeMessageAppended:
				var payload event.MessageAppendedPayload
				if err := e.UnmarshalPayload(&payload); err == nil {
					fmt.Printf("event %-18s %s\n", e.Type, payload.Message.Role)
				}
			default:
				fmt.Printf("event %-18s\n", e.Type)
			}
		}
	}()

	if _, _, err := gw.SendMessage(ctx, "What time is it?"); err != nil {
		log.Fatal(err)
	}

	gw.Close()
	<-done
}
