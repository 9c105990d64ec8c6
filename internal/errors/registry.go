package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Channel and Protocol Errors (E060-E079)
	// ============================================

	"E060": {
		Category:   CategoryChannel,
		Message:    "WebSocket connection failed",
		Detail:     "The resize channel could not be opened or broke down before the server reported a result.",
		Suggestion: "Check that the server is reachable and that --server points at it.",
	},
	"E061": {
		Category: CategoryProtocol,
		Message:  "Invalid status frame",
		Detail:   `The server sent a message that is not a {"Status": ..., "Message": ...} object with a known status. Processing stopped at that message.`,
	},
	"E062": {
		Category: CategoryServer,
		Message:  "Server reported an error",
		Detail:   "The server refused or failed the change. Nothing else is pending; the change can be retried.",
	},
	"E063": {
		Category:   CategoryServer,
		Message:    "Outcome unknown",
		Detail:     "The channel closed before the server reported success or failure. The change may or may not have been applied.",
		Suggestion: "Reload the instance to see its current type, or set channel.closePolicy to \"success\" if the server always closes after completing a change.",
	},
	"E064": {
		Category:   CategoryChannel,
		Message:    "No status received",
		Detail:     "The server accepted the request but sent no status before the first-frame timeout.",
		Suggestion: "Raise channel.firstFrameTimeout for slow servers, or set it to \"0s\" to wait indefinitely.",
	},
	"E065": {
		Category: CategoryCLI,
		Message:  "A change is already in flight",
		Detail:   "The form accepts one change at a time. Wait for the current change to finish.",
	},
	"E066": {
		Category: CategoryCLI,
		Message:  "Change abandoned",
		Detail:   "The view was closed before the server reported a result. The change may still complete on the server.",
	},
	"E067": {
		Category:   CategoryConfig,
		Message:    "Invalid resize endpoint",
		Detail:     "The resize form action could not be turned into a WebSocket URL.",
		Suggestion: "resizePath must be a path such as \"/resize/{id}\" or an http(s) URL.",
	},

	// ============================================
	// Page Errors (E080-E099)
	// ============================================

	"E080": {
		Category:   CategoryServer,
		Message:    "Instance not found",
		Suggestion: "Check --instance or the instance field in resize.json.",
	},
	"E081": {
		Category: CategoryServer,
		Message:  "Unexpected server response",
	},
	"E082": {
		Category: CategoryServer,
		Message:  "Region switch failed",
		Detail:   "The server rejected the region change. The view was reloaded from the server.",
	},

	// ============================================
	// Configuration Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid resize.json",
		Detail:   "The configuration file contains invalid JSON or a value of the wrong type.",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Missing required configuration",
	},
	"E122": {
		Category:   CategoryConfig,
		Message:    "Invalid duration",
		Suggestion: `Durations are strings such as "10s" or "2m".`,
	},
	"E123": {
		Category:   CategoryConfig,
		Message:    "Invalid close policy",
		Suggestion: `Use "ambiguous" (default) or "success".`,
	},
	"E124": {
		Category:   CategoryConfig,
		Message:    "Invalid server URL",
		Suggestion: "Use an absolute URL such as http://localhost:8080.",
	},
	"E125": {
		Category: CategoryConfig,
		Message:  "Invalid transcript storage",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category:   CategoryCLI,
		Message:    "Unknown instance type",
		Suggestion: "Run 'resize ui' to pick from the configured types, or add the type to the types list in resize.json.",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Metrics server failed",
	},
	"E142": {
		Category: CategoryCLI,
		Message:  "Interactive view failed",
	},
	"E143": {
		Category:   CategoryCLI,
		Message:    "Command failed",
		Suggestion: "Run 'resize --help' for usage.",
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

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
