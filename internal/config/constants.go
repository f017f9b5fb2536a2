package config

const (
	// DefaultDatabasePath is the default path for the application database
	DefaultDatabasePath = "./readowl.db"

	// DefaultMaintenanceSchedule runs cleanup daily at 03:00
	DefaultMaintenanceSchedule = "0 3 * * *"
)
