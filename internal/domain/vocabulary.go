package domain

// Vocabulary is the versioned, locale-specific keyword data that drives intent
// classification and multi-command detection.
type Vocabulary struct {
	Version      int      `yaml:"version"`
	Create       []string `yaml:"create"`
	Delete       []string `yaml:"delete"`
	Update       []string `yaml:"update"`
	GroupMarkers []string `yaml:"group_markers"`
	Replies      Replies  `yaml:"replies"`
}

// Replies holds the user-facing messages produced by the dispatcher.
// Templates use fmt verbs documented next to each field.
type Replies struct {
	NotRecognized      string `yaml:"not_recognized"`        // no args
	DeviceNotFound     string `yaml:"device_not_found"`      // %s device reference
	InvalidUpdate      string `yaml:"invalid_update"`        // %s device reference
	UnknownParam       string `yaml:"unknown_param"`         // %s device, %s parameter
	Updated            string `yaml:"updated"`               // %s device, %s parameter, %s value
	UpdateFailed       string `yaml:"update_failed"`         // %s device
	CreateNotRecog     string `yaml:"create_not_recognized"` // no args
	NoSimilarDevice    string `yaml:"no_similar_device"`     // no args
	UserNotFound       string `yaml:"user_not_found"`        // no args
	Created            string `yaml:"created"`               // %s name
	CreateFailed       string `yaml:"create_failed"`         // %s name
	Deleted            string `yaml:"deleted"`               // %s device
	DeleteFailed       string `yaml:"delete_failed"`         // %s device
	DevicesUnavailable string `yaml:"devices_unavailable"`   // no args
	ChatUnavailable    string `yaml:"chat_unavailable"`      // no args
}
