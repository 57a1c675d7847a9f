package notification

import "sort"

// Merge combines a recipient's personal list with the global list.
// A personalized copy in the personal list shadows the global original, and no
// id appears twice. The result is sorted by CreatedAt descending (ties by id).
func Merge(personal, global []Notification) []Notification {
	out := make([]Notification, 0, len(personal)+len(global))
	index := make(map[string]int, len(personal)+len(global))

	for _, n := range personal {
		if i, ok := index[n.ID]; ok {
			// Duplicate personal entries collapse; read wins.
			out[i].Read = out[i].Read || n.Read
			continue
		}
		index[n.ID] = len(out)
		out = append(out, n)
	}
	for _, n := range global {
		if _, ok := index[n.ID]; ok {
			continue
		}
		index[n.ID] = len(out)
		out = append(out, n)
	}

	SortNewestFirst(out)
	return out
}

// SortNewestFirst orders notifications by CreatedAt descending, ties broken by id.
func SortNewestFirst(items []Notification) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].CreatedAt != items[j].CreatedAt {
			return items[i].CreatedAt > items[j].CreatedAt
		}
		return items[i].ID > items[j].ID
	})
}

// UnreadCount counts entries with Read unset.
func UnreadCount(items []Notification) int {
	n := 0
	for _, item := range items {
		if !item.Read {
			n++
		}
	}
	return n
}
