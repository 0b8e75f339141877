// Package export loads chat and issue-tracker exports into pocketkb's domain types.
//
// Chat exports are Discord-style JSON documents:
//
//	{"guild": {"id": "..."}, "channel": {"id": "..."}, "messages": [...]}
//
// Issue exports are GitHub-style JSON arrays of issues. Loading performs no
// reordering: messages keep file order and multiple files are concatenated in
// argument order, which is what thread reconstruction expects.
package export
