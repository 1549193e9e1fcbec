package domain

// EventKey is the logical identity of a notification: two records sharing the
// same (task id, type, message) tuple describe the same real-world event, even
// when they were persisted through different delivery paths. Records without
// a task id still compare by type and message.
type EventKey struct {
	TaskID  string
	Type    NotificationType
	Message string
}

// Key derives the logical identity of a record.
func (n *NotificationRecord) Key() EventKey {
	return EventKey{TaskID: n.TaskID, Type: n.Type, Message: n.Message}
}

// Dedupe collapses records sharing a logical identity to their first
// occurrence, preserving input order. The input is newest-first after the
// store's ordering, so the surviving representative is always the newest
// observation of each event. The function is pure and never fails.
func Dedupe(records []*NotificationRecord) []*NotificationRecord {
	if len(records) < 2 {
		return records
	}

	seen := make(map[EventKey]struct{}, len(records))
	out := records[:0:0]
	for _, n := range records {
		key := n.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}
