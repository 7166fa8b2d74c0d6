package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// Configuration (E101-E199)
	"E101": {
		Category:   CategoryConfig,
		Message:    "Configuration file not found",
		Suggestion: "Pass --host, or create lockwatch.json next to the binary",
	},
	"E102": {
		Category:   CategoryConfig,
		Message:    "Configuration file could not be parsed",
		Suggestion: "Check that the file is valid JSON (comments allowed) or YAML",
	},
	"E103": {
		Category:   CategoryConfig,
		Message:    "Invalid host",
		Suggestion: "Give the address of the monitored PC, e.g. --host 192.168.1.20",
	},
	"E104": {
		Category:   CategoryConfig,
		Message:    "Invalid port",
		Suggestion: "Use a port between 1 and 65535",
	},
	"E105": {
		Category:   CategoryConfig,
		Message:    "Invalid retry mode",
		Suggestion: `Use "forever" or "give-up"`,
	},
	"E106": {
		Category:   CategoryConfig,
		Message:    "Invalid retry delay",
		Suggestion: `Use a positive duration such as "3s"`,
	},
	"E107": {
		Category:   CategoryConfig,
		Message:    "Invalid log setting",
		Suggestion: `Levels: debug, info, warn, error. Formats: text, json`,
	},

	// Commands (E201-E299)
	"E201": {
		Category:   CategoryCommand,
		Message:    "Unknown command",
		Suggestion: "Supported commands: lock",
	},
	"E202": {
		Category:   CategoryCommand,
		Message:    "Command not sent",
		Suggestion: "The monitor is not connected; wait for \"Connected\" and retry",
	},

	// CLI (E301-E399)
	"E301": {
		Category:   CategoryCLI,
		Message:    "Monitor control API unreachable",
		Suggestion: "Start 'lockwatch monitor' first, or pass --api with its address",
	},

	// Protocol (E401-E499)
	"E401": {
		Category:   CategoryProtocol,
		Message:    "Handshake not delivered",
		Suggestion: "The PC may not recognise this client; check the server version or run without --handshake",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
