package enums

import "fmt"

// NotificationType categorizes user-facing notifications.
type NotificationType string

const (
	NotificationTypeTrackReady  NotificationType = "track_ready"
	NotificationTypeTrackFailed NotificationType = "track_failed"
	NotificationTypeComment     NotificationType = "comment"
	NotificationTypeLike        NotificationType = "like"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeTrackReady,
	NotificationTypeTrackFailed,
	NotificationTypeComment,
	NotificationTypeLike,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid reports whether the type is known.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw input into a NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
