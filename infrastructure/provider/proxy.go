package provider

import (
	"context"
	"encoding/json"

	"github.com/felixgeelhaar/gateway-go/domain/tool"
)

// proxyTool exposes one provider capability as a registry tool. The
// tool's origin carries the provider name so removal of the provider
// cascades to exactly its tools.
type proxyTool struct {
	def     ToolDef
	origin  tool.Origin
	manager *Manager
}

func newProxyTool(def ToolDef, providerName string, m *Manager) *proxyTool {
	return &proxyTool{
		def:     def,
		origin:  tool.ProviderOrigin(providerName),
		manager: m,
	}
}

func (p *proxyTool) Name() string {
	return p.def.Name
}

func (p *proxyTool) Description() string {
	return p.def.Description
}

func (p *proxyTool) InputSchema() tool.Schema {
	if len(p.def.InputSchema) == 0 {
		return tool.EmptySchema()
	}
	return tool.NewSchema(p.def.InputSchema)
}

func (p *proxyTool) Origin() tool.Origin {
	return p.origin
}

func (p *proxyTool) Execute(ctx context.Context, input json.RawMessage) (tool.Result, error) {
	return p.manager.Invoke(ctx, p.def.Name, input)
}

// Ensure proxyTool implements tool.Tool
var _ tool.Tool = (*proxyTool)(nil)
