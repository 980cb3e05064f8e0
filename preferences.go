package openshelf

// SessionPreferences are per-user presentation settings. Persisted locally,
// best effort; never security sensitive. Unknown or missing fields in a stored
// blob are ignored rather than treated as corruption.
type SessionPreferences struct {
	Theme             string          `json:"theme,omitempty"`
	Locale            string          `json:"locale,omitempty"`
	LayoutDensity     string          `json:"layoutDensity,omitempty"`
	NotificationFlags map[string]bool `json:"notificationFlags,omitempty"`
}

// DefaultPreferences returns the preferences applied before any are stored.
func DefaultPreferences() SessionPreferences {
	return SessionPreferences{
		Theme:         "light",
		Locale:        "en-US",
		LayoutDensity: "comfortable",
	}
}
