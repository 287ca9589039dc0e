// Package quartz holds the scheduling domain model: jobs, triggers and
// their schedule variants, calendars, and trigger states.
package quartz

import "strings"

// DefaultGroup is the group used when none is given.
const DefaultGroup = "DEFAULT"

// JobKey uniquely identifies a job by name and group.
type JobKey struct {
	Name  string
	Group string
}

// NewJobKey returns a job key in the default group.
func NewJobKey(name string) JobKey {
	return JobKey{Name: name, Group: DefaultGroup}
}

func (k JobKey) String() string { return k.Group + "." + k.Name }

// IsZero reports whether the key is unset.
func (k JobKey) IsZero() bool { return k.Name == "" && k.Group == "" }

// TriggerKey uniquely identifies a trigger by name and group.
type TriggerKey struct {
	Name  string
	Group string
}

// NewTriggerKey returns a trigger key in the default group.
func NewTriggerKey(name string) TriggerKey {
	return TriggerKey{Name: name, Group: DefaultGroup}
}

func (k TriggerKey) String() string { return k.Group + "." + k.Name }

// Less orders trigger keys lexicographically by group then name. Acquisition
// uses it as the final tie-break.
func (k TriggerKey) Less(o TriggerKey) bool {
	if k.Group != o.Group {
		return k.Group < o.Group
	}
	return k.Name < o.Name
}

// MatchOperator selects how a GroupMatcher compares group names.
type MatchOperator int

const (
	MatchEquals MatchOperator = iota
	MatchStartsWith
	MatchEndsWith
	MatchContains
	MatchAnything
)

// GroupMatcher selects trigger or job groups for pause/resume and key
// queries.
type GroupMatcher struct {
	Op    MatchOperator
	Value string
}

// GroupEquals matches exactly one group.
func GroupEquals(group string) GroupMatcher {
	return GroupMatcher{Op: MatchEquals, Value: group}
}

// GroupStartsWith matches groups with the given prefix.
func GroupStartsWith(prefix string) GroupMatcher {
	return GroupMatcher{Op: MatchStartsWith, Value: prefix}
}

// GroupEndsWith matches groups with the given suffix.
func GroupEndsWith(suffix string) GroupMatcher {
	return GroupMatcher{Op: MatchEndsWith, Value: suffix}
}

// GroupContains matches groups containing the given substring.
func GroupContains(substring string) GroupMatcher {
	return GroupMatcher{Op: MatchContains, Value: substring}
}

// AnyGroup matches every group.
func AnyGroup() GroupMatcher {
	return GroupMatcher{Op: MatchAnything}
}

// Matches reports whether the group satisfies the matcher.
func (m GroupMatcher) Matches(group string) bool {
	switch m.Op {
	case MatchEquals:
		return group == m.Value
	case MatchStartsWith:
		return strings.HasPrefix(group, m.Value)
	case MatchEndsWith:
		return strings.HasSuffix(group, m.Value)
	case MatchContains:
		return strings.Contains(group, m.Value)
	case MatchAnything:
		return true
	default:
		return false
	}
}
