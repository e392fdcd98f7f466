package types

import (
	"testing"
)

type auditArgsFixture struct {
	AuditerID int64                 `json:"auditer_id" desc:"ID of the auditor"`
	ItemID    int64                 `json:"item_id" desc:"ID of the item"`
	AuditID   int64                 `json:"audit_id" desc:"ID of the audit"`
	Location  *int64                `json:"location_id,omitempty" desc:"ID of the location"`
	Metadata  *auditMetadataFixture `json:"metadata,omitempty"`
}

type auditMetadataFixture struct {
	Condition string   `json:"condition,omitempty" enum:"good,fair,poor"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Comments  string   `json:"comments,omitempty"`
}

func TestGenerateJSONSchema_RequiredFields(t *testing.T) {
	schema := SchemaFor[auditArgsFixture]()

	if schema.Type != "object" {
		t.Fatalf("Type mismatch: got %q", schema.Type)
	}

	required := map[string]bool{}
	for _, name := range schema.Required {
		required[name] = true
	}
	for _, name := range []string{"auditer_id", "item_id", "audit_id"} {
		if !required[name] {
			t.Errorf("Expected %q to be required", name)
		}
	}
	if required["location_id"] {
		t.Error("location_id should be optional")
	}
	if required["metadata"] {
		t.Error("metadata should be optional")
	}
}

func TestGenerateJSONSchema_FieldTypes(t *testing.T) {
	schema := SchemaFor[auditArgsFixture]()

	if got := schema.Properties["item_id"].Type; got != "integer" {
		t.Errorf("item_id type mismatch: got %q", got)
	}
	if got := schema.Properties["item_id"].Description; got != "ID of the item" {
		t.Errorf("item_id description mismatch: got %q", got)
	}

	meta := schema.Properties["metadata"]
	if meta.Type != "object" {
		t.Fatalf("metadata type mismatch: got %q", meta.Type)
	}
	if got := meta.Properties["latitude"].Type; got != "number" {
		t.Errorf("latitude type mismatch: got %q", got)
	}
}

func TestGenerateJSONSchema_EnumTag(t *testing.T) {
	schema := SchemaFor[auditMetadataFixture]()

	enum := schema.Properties["condition"].Enum
	if len(enum) != 3 {
		t.Fatalf("Enum length mismatch: got %d", len(enum))
	}
	want := []string{"good", "fair", "poor"}
	for i, v := range want {
		if enum[i] != v {
			t.Errorf("Enum[%d] mismatch: got %q, want %q", i, enum[i], v)
		}
	}
}
