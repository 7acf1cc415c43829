package models

import (
	"sort"
	"time"
)

// QueueEntry represents one user waiting for control of a resource. Entries
// are unique per (resource, user); duplicates are rejected at the store.
type QueueEntry struct {
	ID         string    `json:"id"`
	ResourceID string    `json:"resource_id"`
	UserID     string    `json:"user_id"`
	UserEmail  string    `json:"user_email"`
	Role       Role      `json:"role"`
	JoinedAt   time.Time `json:"joined_at"`
}

// SortEntries orders a resource's waiting list in place: role priority
// ascending (highest-priority role first), then JoinedAt ascending within
// equal priority. Pin-to-front works by rewriting JoinedAt to an earlier
// instant, so no extra ordering rule is needed here.
func SortEntries(entries []QueueEntry, hierarchy *RoleHierarchy) {
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := hierarchy.Priority(entries[i].Role), hierarchy.Priority(entries[j].Role)
		if pi != pj {
			return pi < pj
		}
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})
}

// Position returns the 1-based queue position of the given entry: the count
// of entries that sort strictly before it, plus one. Returns 0 when the
// entry is not in the list.
func Position(entries []QueueEntry, hierarchy *RoleHierarchy, entryID string) int {
	var target *QueueEntry
	for i := range entries {
		if entries[i].ID == entryID {
			target = &entries[i]
			break
		}
	}
	if target == nil {
		return 0
	}
	position := 1
	for i := range entries {
		if entries[i].ID == target.ID {
			continue
		}
		if sortsBefore(&entries[i], target, hierarchy) {
			position++
		}
	}
	return position
}

func sortsBefore(a, b *QueueEntry, hierarchy *RoleHierarchy) bool {
	pa, pb := hierarchy.Priority(a.Role), hierarchy.Priority(b.Role)
	if pa != pb {
		return pa < pb
	}
	return a.JoinedAt.Before(b.JoinedAt)
}
