// Package audit implements the audit_item_location tool: argument parsing,
// validation, and the commit operation that records one item audit.
package audit

import (
	"encoding/json"
	"fmt"

	"github.com/junctionhq/auditline/pkg/core"
	"github.com/junctionhq/auditline/pkg/core/types"
)

// ToolName is the single tool this module registers with the model.
const ToolName = "audit_item_location"

// ToolDescription is what the model sees when deciding to call the tool.
const ToolDescription = "Generates a report stating that the item has been audited to the provided location."

// Args are the arguments of an audit_item_location call.
// The model emits loosely typed JSON; ParseArgs validates it into this shape.
type Args struct {
	AuditerID  int64     `json:"auditer_id" desc:"Unique identifier for the auditor"`
	ItemID     int64     `json:"item_id" desc:"Unique identifier for the item being audited"`
	AuditID    int64     `json:"audit_id" desc:"Unique identifier for the audit. This is the audit ID!"`
	LocationID *int64    `json:"location_id,omitempty" desc:"Unique identifier for the location"`
	Metadata   *Metadata `json:"metadata,omitempty" desc:"Additional audit information"`
}

// Metadata carries optional observations captured during the audit.
type Metadata struct {
	Latitude       *float64 `json:"latitude,omitempty" desc:"Latitude coordinate of the location"`
	Longitude      *float64 `json:"longitude,omitempty" desc:"Longitude coordinate of the location"`
	Comments       string   `json:"comments,omitempty" desc:"Optional comments about the audit"`
	Condition      string   `json:"condition,omitempty" desc:"Optional assessment of the item's condition" enum:"good,fair,poor"`
	ImageURL       string   `json:"image_url,omitempty" desc:"URL of the audit image if provided"`
	ImageConfirmed *bool    `json:"image_confirmed,omitempty" desc:"Whether the image has been confirmed"`
	SerialNumber   string   `json:"serial_number,omitempty" desc:"Serial number of the item if applicable"`
}

// Definition returns the tool definition submitted with every model turn.
func Definition() types.Tool {
	return types.NewFunctionTool(ToolName, ToolDescription, types.SchemaFor[Args]())
}

var validConditions = map[string]struct{}{
	"good": {},
	"fair": {},
	"poor": {},
}

// ParseArgs validates raw tool-call input into Args. Model JSON is not
// trusted: wrong types and missing required fields are rejected here, never
// coerced.
func ParseArgs(raw json.RawMessage) (*Args, error) {
	var args Args
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, core.NewValidationError(fmt.Sprintf("malformed tool arguments: %v", err), "")
	}

	if args.AuditerID <= 0 {
		return nil, core.NewValidationError("auditer_id is required and must be a positive integer", "auditer_id")
	}
	if args.ItemID <= 0 {
		return nil, core.NewValidationError("item_id is required and must be a positive integer", "item_id")
	}
	if args.AuditID <= 0 {
		return nil, core.NewValidationError("audit_id is required and must be a positive integer", "audit_id")
	}
	if args.LocationID != nil && *args.LocationID <= 0 {
		return nil, core.NewValidationError("location_id must be a positive integer when present", "location_id")
	}

	if m := args.Metadata; m != nil {
		if m.Condition != "" {
			if _, ok := validConditions[m.Condition]; !ok {
				return nil, core.NewValidationError(
					fmt.Sprintf("condition must be one of good, fair, poor; got %q", m.Condition),
					"metadata.condition")
			}
		}
		if m.Latitude != nil && (*m.Latitude < -90 || *m.Latitude > 90) {
			return nil, core.NewValidationError("latitude must be between -90 and 90", "metadata.latitude")
		}
		if m.Longitude != nil && (*m.Longitude < -180 || *m.Longitude > 180) {
			return nil, core.NewValidationError("longitude must be between -180 and 180", "metadata.longitude")
		}
	}

	return &args, nil
}
