package tasks

import "github.com/mikestefanello/backlite"

// TaskType describes a task an administrator can start by hand.
type TaskType struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Queue       string `json:"queue"`
	// New builds the task. Manual runs take no parameters.
	New func() backlite.Task `json:"-"`
}

// ManualTaskTypes lists the tasks exposed through the admin API.
func ManualTaskTypes(notificationRetentionDays int) []TaskType {
	types := []TaskType{
		{
			Type:        "cleanup_reset_tokens",
			Description: "Delete used and expired password reset tokens",
			New:         func() backlite.Task { return CleanupResetTokensTask{} },
		},
		{
			Type:        "cleanup_notifications",
			Description: "Delete read notifications past the retention period",
			New: func() backlite.Task {
				return CleanupNotificationsTask{RetentionDays: notificationRetentionDays}
			},
		},
		{
			Type:        "backfill_slugs",
			Description: "Assign slugs to books stored without one",
			New:         func() backlite.Task { return BackfillSlugsTask{} },
		},
	}
	for i := range types {
		types[i].Queue = types[i].New().Config().Name
	}
	return types
}

// LookupTaskType finds a manual task type by name.
func LookupTaskType(types []TaskType, name string) (TaskType, bool) {
	for _, t := range types {
		if t.Type == name {
			return t, true
		}
	}
	return TaskType{}, false
}
