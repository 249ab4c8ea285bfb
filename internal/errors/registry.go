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
	// Config errors (E001-E099)
	// ============================================

	"E001": {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "staticgo.json was not found in the project directory or any parent.",
		Suggestion: "Run the command from the project root, or create a staticgo.json.",
	},
	"E002": {
		Category:   CategoryConfig,
		Message:    "Invalid config file",
		Detail:     "staticgo.json exists but could not be parsed as JSON.",
		Suggestion: "Check the file for trailing commas or unquoted keys.",
	},
	"E003": {
		Category: CategoryConfig,
		Message:  "Invalid config value",
	},
	"E004": {
		Category:   CategoryConfig,
		Message:    "Cannot create project",
		Suggestion: "Choose a different name or remove the existing directory.",
	},

	// ============================================
	// Route table errors (E100-E199)
	// ============================================

	"E100": {
		Category:   CategoryRoutes,
		Message:    "Pages directory not found",
		Suggestion: "Create a pages/ directory with an index.html, or set paths.pages in staticgo.json.",
	},
	"E101": {
		Category:   CategoryRoutes,
		Message:    "Overlapping dynamic routes",
		Detail:     "Two sibling directories declare a dynamic segment at the same position, so requests matching either cannot be attributed deterministically.",
		Suggestion: "Keep at most one [param] directory per parent directory.",
	},
	"E102": {
		Category:   CategoryRoutes,
		Message:    "Malformed dynamic segment",
		Detail:     "A directory name uses bracket syntax that is not a plain [name] placeholder.",
		Suggestion: "Rename the directory to [name] with only letters, digits, '_' or '-'.",
	},
	"E103": {
		Category: CategoryRoutes,
		Message:  "Route table artifact write failed",
	},

	// ============================================
	// Render errors (E200-E299)
	// ============================================

	"E200": {
		Category: CategoryRender,
		Message:  "Page render failed",
	},
	"E201": {
		Category:   CategoryRender,
		Message:    "Layout not readable",
		Suggestion: "Check that the layout.html referenced by the route exists and is readable.",
	},

	// ============================================
	// Revalidation errors (E300-E399)
	// ============================================

	"E300": {
		Category: CategoryRevalidate,
		Message:  "Revalidation already in progress",
		Detail:   "Only one rebuild batch may be in flight at a time; retry once the current batch completes.",
	},
	"E301": {
		Category: CategoryRevalidate,
		Message:  "Revalidation rebuild failed",
	},

	// ============================================
	// Build and deploy errors (E400-E499)
	// ============================================

	"E400": {
		Category: CategoryBuild,
		Message:  "Build failed",
	},
	"E401": {
		Category: CategoryBuild,
		Message:  "Asset copy failed",
	},
	"E402": {
		Category:   CategoryDeploy,
		Message:    "Deploy failed",
		Suggestion: "Check AWS credentials and the deploy.s3 section of staticgo.json.",
	},

	// ============================================
	// Watcher errors (E500-E599)
	// ============================================

	"E500": {
		Category: CategoryWatch,
		Message:  "File watcher error",
		Detail:   "The file-system notifier reported an error; watching continues in degraded mode.",
	},
}

// Register adds a template at runtime, primarily for tests.
func Register(code string, t ErrorTemplate) {
	registry[code] = t
}
