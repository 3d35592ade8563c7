// Package main demonstrates compiling tools from source text at
// runtime: a trusted-mode tool with full stdlib access and a
// sandboxed-mode tool restricted to a safe package subset.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/felixgeelhaar/gateway-go/domain/message"
	"github.com/felixgeelhaar/gateway-go/domain/tool"
	"github.com/felixgeelhaar/gateway-go/infrastructure/backend"
	"github.com/felixgeelhaar/gateway-go/infrastructure/compiler"
	gateway "github.com/felixgeelhaar/gateway-go/interfaces/api"
)

func main() {
	mock := backend.NewMockBackend(
		backend.ToolCallResponse(message.ToolCall{
			ID:        "call_1",
			Name:      "shout",
			Arguments: json.RawMessage(`{"text":"dynamic tools work"}`),
		}),
		backend.TextResponse("I shouted it for you."),
	)

	// Sandboxed mode validates imports against a whitelist and bounds
	// each invocation with a wall-clock deadline.
	gw, err := gateway.New(
		gateway.WithBackend(mock),
		gateway.WithCompiler(compiler.New(compiler.WithMode(compiler.ModeSandboxed))),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer gw.Close()

	// Compile a tool from source text. The schema's property order
	// determines the parameter order of the synthesized function.
	if _, err := gw.CompileTool(gateway.CompileRequest{
		Name:        "shout",
		Description: "Uppercases the given text",
		Schema: tool.ObjectSchema([]tool.Property{
			{Name: "text", Type: "string"},
		}, []string{"text"}),
		Body: `return strings.ToUpper(text)`,
	}); err != nil {
		log.Fatal(err)
	}

	sess, reply, err := gw.SendMessage(context.Background(), "Shout something")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("=== Dynamic Tools Example ===")
	fmt.Printf("State: %s, turns: %d\n", sess.State, sess.Turns)
	fmt.Printf("Reply: %s\n", reply.Content)
	for _, m := range gw.History() {
		if m.IsToolResult() {
			fmt.Printf("  tool %s returned %s\n", m.ToolName, m.Content)
		}
	}
}
