package scheduling

const (
	TopicConflictDetected = "scheduling.conflict.detected"
	TopicAlertRaised      = "scheduling.alert.raised"
	TopicAlertResolved    = "scheduling.alert.resolved"
	TopicAlertEscalated   = "scheduling.alert.escalated"
)

// Partition key = work order id, so every event of one order stays ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
