package errors

// Entry defines a registered error type.
type Entry struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their entries.
var registry = map[string]Entry{
	// ============================================
	// Template Errors (T001-T019)
	// ============================================

	"T001": {
		Category:   CategoryTemplate,
		Message:    "Malformed definition",
		Detail:     "A definition node must declare either an element (tag, attributes, children, listeners) or a text value, never both or neither.",
		Suggestion: "Give the node a tag or a text value",
	},
	"T002": {
		Category:   CategoryTemplate,
		Message:    "Structural mismatch",
		Detail:     "The definition does not line up with the node it was applied to: a child count or node kind differs.",
		Suggestion: "Apply the definition to a node with the same shape",
	},
	"T003": {
		Category: CategoryTemplate,
		Message:  "Definition already rendered",
		Detail:   "A definition can be rendered or applied once. Extending it is only possible before that.",
	},
	"T004": {
		Category: CategoryTemplate,
		Message:  "Nothing to revert",
		Detail:   "Revert was called on a node the definition was not applied to, or the node changed shape since.",
	},
	"T099": {
		Category: CategoryTemplate,
		Message:  "Template failure",
		Detail:   "The template engine returned an unexpected error.",
	},

	// ============================================
	// View Errors (T020-T039)
	// ============================================

	"T020": {
		Category:   CategoryView,
		Message:    "View has no template",
		Detail:     "The view was rendered or extended before a template was set.",
		Suggestion: "Call SetTemplate before Render",
	},
	"T021": {
		Category: CategoryView,
		Message:  "View already in collection",
		Detail:   "A view can be added to a collection once.",
	},
	"T022": {
		Category: CategoryView,
		Message:  "Collection index out of range",
		Detail:   "The index is outside the collection.",
	},

	// ============================================
	// Configuration Errors (C001-C019)
	// ============================================

	"C001": {
		Category: CategoryConfig,
		Message:  "Invalid vtemplate.json",
		Detail:   "The vtemplate.json configuration file is malformed.",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
		Detail:   "A required configuration value is not set.",
	},
	"C003": {
		Category: CategoryConfig,
		Message:  "Invalid port number",
		Detail:   "The configured port number must be between 1 and 65535.",
	},
	"C004": {
		Category:   CategoryConfig,
		Message:    "Invalid log setting",
		Detail:     "log.level must be debug, info, warn or error and log.format must be text or json.",
		Suggestion: `"log": {"level": "info", "format": "text"}`,
	},
	"C005": {
		Category: CategoryConfig,
		Message:  "Invalid path",
		Detail:   "HTTP paths in the configuration must start with a slash.",
	},

	// ============================================
	// CLI Errors (X001-X019)
	// ============================================

	"X001": {
		Category:   CategoryCLI,
		Message:    "Template file not found",
		Detail:     "The template file does not exist or cannot be read.",
		Suggestion: "Check the path; relative paths start at the working directory",
	},
	"X002": {
		Category: CategoryCLI,
		Message:  "Invalid template file",
		Detail:   "The template file could not be parsed as a vtemplate YAML definition.",
	},
	"X003": {
		Category:   CategoryCLI,
		Message:    "Target not found",
		Detail:     "No node of the input document matches the target selector.",
		Suggestion: "Check the --target selector against the input HTML",
	},
	"X004": {
		Category: CategoryCLI,
		Message:  "Invalid input document",
		Detail:   "The input HTML could not be read or parsed.",
	},
	"X005": {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The preview server stopped with an error.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetEntry returns the entry for an error code.
func GetEntry(code string) (Entry, bool) {
	e, ok := registry[code]
	return e, ok
}

// Register adds a new entry to the registry.
func Register(code string, entry Entry) {
	registry[code] = entry
}
