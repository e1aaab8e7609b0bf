package enums

// OutboxEventType identifies events queued through the transactional outbox.
type OutboxEventType string

const (
	EventNotificationPush OutboxEventType = "notification.push"
)

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	return o == EventNotificationPush
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateNotification OutboxAggregateType = "notification"
)

// IsValid reports whether the value is a known OutboxAggregateType.
func (o OutboxAggregateType) IsValid() bool {
	return o == AggregateNotification
}
