// Package main demonstrates the absolute minimum working gateway.
// This is the simplest possible gateway-go example.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/backend"
	gateway "github.com/felixgeelhaar/gateway-go/interfaces/api"
)

func main() {
	// 1. Create a simple tool that echoes input
	echoTool := gateway.NewToolBuilder("echo").
		WithDescription("Echoes the input message").
		WithInputSchema(tool.ObjectSchema([]tool.Property{
			{Name: "message", Type: "string", Description: "Text to echo back"},
		}, []string{"message"})).
		WithHandler(func(ctx context.Context, input json.RawMessage) (tool.Result, error) {
			var in struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(input, &in); err != nil {
				return tool.Result{}, fmt.Errorf("invalid input: %w", err)
			}

			output, err := json.Marshal(map[string]string{
				"echoed": in.Message,
			})
			if err != nil {
				return tool.Result{}, fmt.Errorf("failed to marshal output: %w", err)
			}
			return tool.NewResult(output), nil
		}).
		MustBuild()

	// 2. Create a scripted backend with predetermined responses.
	// With a real deployment this would be backend.FromConfig with an
	// anthropic or openai model configuration.
	mock := backend.NewMockBackend(
		backend.ToolCallResponse(message.ToolCall{
			ID:        "call_1",
			Name:      "echo",
			Arguments: json.RawMessage(`{"message":"Hello, Gateway!"}`),
		}),
		backend.TextResponse("The echo tool returned your greeting."),
	)

	// 3. Build the gateway
	gw, err := gateway.New(
		gateway.WithBackend(mock),
		gateway.WithSystemPrompt("You are a helpful assistant."),
		gateway.WithTool(echoTool),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer gw.Close()

	// 4. Send a message
	sess, reply, err := gw.SendMessage(context.Background(), "Echo a greeting for me")
	if err != nil {
		log.Fatal(err)
	}

	// 5. Check results
	fmt.Println("=== Minimal Gateway Example ===")
	fmt.Printf("State: %s\n", sess.State)
	fmt.Printf("Turns: %d\n", sess.Turns)
	fmt.Printf("Reply: %s\n", reply.Content)
	for _, m := range gw.History() {
		fmt.Printf("  %-9s %s\n", m.Role, m.Content)
	}
}
