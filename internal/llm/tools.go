package llm

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	stderrors "fulfillment-assistant/internal/common/errors"
)

// The fixed, versioned tool vocabulary. The set is closed: the orchestrator
// dispatches by these names and nothing else.
const (
	ToolSwitchFacility = "switch_facility"
	ToolFetchOrder     = "fetch_order"
	ToolProcessOrder   = "process_order"
)

const switchFacilitySchema = `{
	"type": "object",
	"properties": {
		"facilityCode": {"type": "string", "minLength": 1}
	},
	"required": ["facilityCode"]
}`

const fetchOrderSchema = `{
	"type": "object",
	"properties": {
		"entity": {"type": "string", "enum": ["SaleOrder", "Picklist"]},
		"filterOptions": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"key": {"type": "string"},
					"selectedValues": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["key", "selectedValues"]
			}
		}
	},
	"required": ["entity", "filterOptions"]
}`

const processOrderSchema = `{
	"type": "object",
	"properties": {
		"orders": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"saleOrderNum": {"type": "string"},
					"shipment": {"type": "string"},
					"channel": {"type": "string"},
					"channelName": {"type": "string"},
					"channelId": {"type": "integer"}
				},
				"required": ["saleOrderNum", "shipment"]
			}
		}
	}
}`

var toolSchemas = map[string]string{
	ToolSwitchFacility: switchFacilitySchema,
	ToolFetchOrder:     fetchOrderSchema,
	ToolProcessOrder:   processOrderSchema,
}

// KnownTool reports whether name is part of the tool vocabulary.
func KnownTool(name string) bool {
	_, ok := toolSchemas[name]
	return ok
}

// ValidateArgs checks a tool call's arguments against its schema before
// dispatch. Unknown tool names fail with the UNKNOWN_TOOL code.
func ValidateArgs(name string, args json.RawMessage) error {
	schema, ok := toolSchemas[name]
	if !ok {
		return stderrors.NewUnknownToolError(name)
	}

	payload := args
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return stderrors.NewInvalidToolArgumentsError(name, err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return stderrors.NewInvalidToolArgumentsError(name, strings.Join(details, "; "))
	}
	return nil
}

// functionDeclarations renders the tool vocabulary in the wire shape the
// model endpoint expects.
func functionDeclarations() []map[string]interface{} {
	decls := make([]map[string]interface{}, 0, len(toolSchemas))
	for _, name := range []string{ToolSwitchFacility, ToolFetchOrder, ToolProcessOrder} {
		var params map[string]interface{}
		_ = json.Unmarshal([]byte(toolSchemas[name]), &params)
		decls = append(decls, map[string]interface{}{
			"name":       name,
			"parameters": params,
		})
	}
	return decls
}
