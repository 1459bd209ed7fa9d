package logstore

// Property describes one configuration property of the backend.
type Property struct {
	Name         string
	Title        string
	Description  string
	Required     bool
	DefaultValue string
	Secret       bool
}

// Descriptor identifies the backend to a host and lists its properties.
type Descriptor struct {
	Provider    string
	Title       string
	Description string
	Properties  []Property
}

// Description is the descriptor of the WebDAV log storage backend.
var Description = Descriptor{
	Provider:    "webdav-logstore",
	Title:       "WebDAV Log File Storage",
	Description: "Stores execution log files in a WebDAV (or S3) document store",
	Properties: []Property{
		{
			Name:  "path",
			Title: "Path",
			Description: "The path in the store to write a log file to. Expansion variables: " +
				TokenExecID + " = execution ID, " + TokenProject + " = project name, " +
				TokenJobID + " = job UUID (or blank). A path ending in / without " +
				TokenExecID + " gets " + TokenExecID + ".rdlog appended.",
			Required:     true,
			DefaultValue: DefaultPathTemplate,
		},
		{
			Name:        "base_url",
			Title:       "Base URL",
			Description: "The WebDAV base URL, or s3://bucket[/prefix] for S3.",
			Required:    true,
		},
		{
			Name:        "username",
			Title:       "Username",
			Description: "The account username (access key ID for S3).",
			Required:    true,
		},
		{
			Name:        "password",
			Title:       "Password",
			Description: "The account password (secret access key for S3).",
			Required:    true,
			Secret:      true,
		},
	},
}
