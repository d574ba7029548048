package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Config Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No counter.json was found in the current directory or any parent directory.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "counter.json could not be read or is not valid JSON.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "The server port must be between 0 and 65535.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Unknown persistence backend",
		Detail:   "persist.backend must be one of: memory, file, sqlite, s3, redis.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Incomplete persistence settings",
		Detail:   "The selected persistence backend is missing a required setting.",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Invalid log settings",
		Detail:   "log.level must be debug, info, warn or error and log.format must be text or json.",
	},
	"E106": {
		Category: CategoryConfig,
		Message:  "Config file already exists",
		Detail:   "A counter.json already exists in the target directory.",
	},

	// ============================================
	// Storage Errors (E200-E219)
	// ============================================

	"E200": {
		Category: CategoryStorage,
		Message:  "Storage read failed",
		Detail:   "The durable medium returned an error while reading persisted state.",
	},
	"E201": {
		Category: CategoryStorage,
		Message:  "Storage write failed",
		Detail:   "The durable medium returned an error while writing state.",
	},
	"E202": {
		Category: CategoryPayload,
		Message:  "Malformed persisted state",
		Detail:   "The persisted payload could not be decoded and was discarded. The store starts from its default state.",
	},
	"E203": {
		Category: CategoryStorage,
		Message:  "Storage unavailable",
		Detail:   "The durable medium could not be opened.",
	},
	"E204": {
		Category: CategoryStorage,
		Message:  "Storage remove failed",
		Detail:   "The durable medium returned an error while clearing persisted state.",
	},

	// ============================================
	// Action Errors (E300-E319)
	// ============================================

	"E300": {
		Category: CategoryAction,
		Message:  "Unknown action",
		Detail:   "The counter accepts the actions increment, decrement and reset.",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
