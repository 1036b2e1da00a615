package dom

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchSetText    PatchOp = 0x01 // Update text content
	PatchSetAttr    PatchOp = 0x02 // Set/update attribute
	PatchRemoveAttr PatchOp = 0x03 // Remove attribute
	PatchInsertNode PatchOp = 0x04 // Insert new node
	PatchRemoveNode PatchOp = 0x05 // Remove node
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchInsertNode:
		return "InsertNode"
	case PatchRemoveNode:
		return "RemoveNode"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the op by name so patches read well as JSON.
func (op PatchOp) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// Patch is a single DOM mutation under the document body.
type Patch struct {
	Op    PatchOp `json:"op"`
	Path  []int   `json:"path"`            // Target (or parent, for InsertNode) path from <body>
	Key   string  `json:"key,omitempty"`   // Attribute key (SetAttr/RemoveAttr)
	NS    string  `json:"ns,omitempty"`    // Attribute namespace
	Value string  `json:"value,omitempty"` // New value or text
	Index int     `json:"index,omitempty"` // Insert position
	HTML  string  `json:"html,omitempty"`  // Serialized node for InsertNode
	Text  bool    `json:"text,omitempty"`  // InsertNode of a text node
}
