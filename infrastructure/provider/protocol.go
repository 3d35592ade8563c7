// Package provider manages external tool provider subprocesses. A
// provider is launched from a command line and speaks JSON-RPC 2.0 over
// its standard I/O: initialize handshake, tool discovery, tool
// invocation, and shutdown.
package provider

import "encoding/json"

// protocolVersion identifies the wire protocol revision sent during the
// initialize handshake.
const protocolVersion = "2024-11-05"

// rpcRequest is a JSON-RPC 2.0 request or notification.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// rpcResponse is a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// peerInfo identifies one side of the handshake.
type peerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type initParams struct {
	ProtocolVersion string   `json:"protocolVersion"`
	Capabilities    any      `json:"capabilities"`
	ClientInfo      peerInfo `json:"clientInfo"`
}

type initResult struct {
	ProtocolVersion string   `json:"protocolVersion"`
	ServerInfo      peerInfo `json:"serverInfo"`
}

// ToolDef is a tool definition discovered from a provider.
type ToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

type listToolsResult struct {
	Tools []ToolDef `json:"tools"`
}

type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// callToolResult is the provider-side outcome of an invocation. IsError
// marks a tool-level failure, which becomes a structured failure result
// rather than a transport error.
type callToolResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}
