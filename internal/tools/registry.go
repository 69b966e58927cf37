package tools

import (
	"github.com/monica-concierge/monica/internal/schema"
)

// ToolName is the canonical name of a built-in tool.
type ToolName string

const (
	ToolLoadProducts   ToolName = "load_products_details"
	ToolFormatProducts ToolName = "format_product_response"
	ToolLoadArtifacts  ToolName = "load_artifacts"
)

// Registry holds a set of named tools and exposes them for execution.
type Registry struct {
	tools map[string]schema.Tool
}

// GetTool returns the tool with the given name, or nil.
func (r *Registry) GetTool(name ToolName) schema.Tool {
	return r.tools[string(name)]
}

// AllTools returns a ToolList holding every registered tool.
func (r *Registry) AllTools() *ToolList {
	list := &ToolList{tools: make(map[string]schema.Tool, len(r.tools))}
	for k, t := range r.tools {
		list.tools[k] = t
	}
	return list
}
