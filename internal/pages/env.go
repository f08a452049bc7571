package pages

import "strconv"

const (
	notSet     = "[NOT SET]"
	configured = "[CONFIGURED]"
)

// Settings is the display-only configuration surface of the demo pages.
type Settings struct {
	AppName string
	Version string
	APIURL  string

	Mode        string
	ServerLabel string
	Environment string
	DatabaseURL string
	APIKey      string
	Region      string
	Ray         string
	AppVersion  string
	BuildID     string
}

type envRow struct {
	Key   string
	Name  string
	Value string
}

func orNotSet(v string) string {
	if v == "" {
		return notSet
	}
	return v
}

func mask(v string) string {
	if v == "" {
		return notSet
	}
	return configured
}

func (s Settings) serverRows(nowMillis int64) []envRow {
	return []envRow{
		{"APP_ENV", "Mode", orNotSet(s.Mode)},
		{"SERVER_ID", "Server Label", orNotSet(s.ServerLabel)},
		{"ENVIRONMENT", "Environment", orNotSet(s.Environment)},
		{"TIMESTAMP", "Timestamp", strconv.FormatInt(nowMillis, 10)},
		{"DATABASE_URL", "Database URL", mask(s.DatabaseURL)},
		{"API_KEY", "API Key", mask(s.APIKey)},
		{"EDGE_REGION", "Edge Region", orNotSet(s.Region)},
		{"EDGE_RAY", "Edge Ray", orNotSet(s.Ray)},
		{"APP_VERSION", "App Version", orNotSet(s.AppVersion)},
		{"BUILD_ID", "Build ID", orNotSet(s.BuildID)},
	}
}

func (s Settings) publicRows() []envRow {
	return []envRow{
		{Key: "PUBLIC_API_URL", Value: orNotSet(s.APIURL)},
		{Key: "PUBLIC_APP_NAME", Value: orNotSet(s.AppName)},
		{Key: "PUBLIC_VERSION", Value: orNotSet(s.Version)},
	}
}
