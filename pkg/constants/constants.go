// Package constants provides shared constants for the finance-quests application.
package constants

// TimestampLayout is the layout used for completion timestamps.
const TimestampLayout = "2006-01-02T15:04:05Z07:00"

// DayLayout identifies a calendar day when computing streaks.
const DayLayout = "2006-01-02"

// Financial constants
const (
	// MonthsPerYear is the number of months in a year
	MonthsPerYear = 12

	// CurrencyPlaces is the number of decimal places kept for money amounts
	CurrencyPlaces = 2

	// DefaultMinimumIncome is the smallest monthly income a quest accepts
	DefaultMinimumIncome = 500.0

	// DefaultNeedsProportion is the share of income for the needs envelope
	DefaultNeedsProportion = 0.50

	// DefaultWantsProportion is the share of income for the wants envelope
	DefaultWantsProportion = 0.30

	// DefaultSavingsProportion is the share of income for the savings envelope
	DefaultSavingsProportion = 0.20
)

// Risk tier boundaries on the disposable ratio. A ratio equal to a boundary
// belongs to the safer tier.
const (
	DefaultCautionThreshold     = 0.15
	DefaultStableThreshold      = 0.30
	DefaultComfortableThreshold = 0.50
)

// Quest families
const (
	// FamilyBudget is the 50/30/20 budget split quest family
	FamilyBudget = "budget"

	// FamilyRisk is the overdraft risk quest family
	FamilyRisk = "risk"
)

// Streak rules
const (
	// StreakOnCommitment grants a streak only when the user commits to the plan
	StreakOnCommitment = "commitment"

	// StreakOnCompletion grants a streak whenever the quest is completed
	StreakOnCompletion = "completion"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Persistence drivers
const (
	// StoreDriverNone disables persistence of completion records
	StoreDriverNone = "none"

	// StoreDriverMemory keeps completion records in process memory
	StoreDriverMemory = "memory"

	// StoreDriverSQLite persists completion records to a SQLite file
	StoreDriverSQLite = "sqlite"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the quest API
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultMaxActiveRuns caps the quest runs the API holds open at once
	DefaultMaxActiveRuns = 1000

	// DefaultIdleTimeout is how long an untouched quest run stays open
	DefaultIdleTimeout = "30m"

	// DefaultSweepSchedule is the cron schedule of the idle-run sweep
	DefaultSweepSchedule = "@every 1m"
)
