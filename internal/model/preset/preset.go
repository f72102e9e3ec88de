package preset

// Issue is a common WordPress problem offered as a one-click shortcut.
type Issue struct {
	ID          string `json:"id" yaml:"id" toml:"id"`
	Label       string `json:"label" yaml:"label" toml:"label"`
	Description string `json:"description" yaml:"description" toml:"description"`
	Icon        string `json:"icon" yaml:"icon" toml:"icon"`
}

// Prompt is the message submitted on the user's behalf when the shortcut is picked.
func (i Issue) Prompt() string {
	return "I'm experiencing: " + i.Label
}

// Link points at an external support resource shown next to the catalog.
type Link struct {
	Label string `json:"label" yaml:"label" toml:"label"`
	URL   string `json:"url" yaml:"url" toml:"url"`
}

// Seed provides the built-in issue catalog.
func Seed() []Issue {
	return []Issue{
		{
			ID:          "wsod",
			Label:       "White Screen of Death",
			Description: "Site is blank or showing a fatal error.",
			Icon:        "📄",
		},
		{
			ID:          "login",
			Label:       "Login Issues",
			Description: "Cannot access wp-admin or forgot password.",
			Icon:        "🔐",
		},
		{
			ID:          "plugin-conflict",
			Label:       "Plugin Conflict",
			Description: "Site broke after updating or installing a plugin.",
			Icon:        "🔌",
		},
		{
			ID:          "ssl-error",
			Label:       "SSL/HTTPS Fix",
			Description: "Browser shows \"Not Secure\" warning.",
			Icon:        "🔒",
		},
		{
			ID:          "memory-limit",
			Label:       "Memory Limit",
			Description: "Allowed memory size exhausted errors.",
			Icon:        "🧠",
		},
	}
}

// SeedLinks lists the default support resources.
func SeedLinks() []Link {
	return []Link{
		{Label: "WP Forums", URL: "https://wordpress.org/support/"},
		{Label: "Dev Hub", URL: "https://developer.wordpress.org/"},
	}
}
