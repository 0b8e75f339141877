// Package repair holds one-off maintenance passes over stored knowledge records.
//
// Both passes walk every record of one source kind, change records in place
// and report how many they touched. In dry-run mode they only count.
package repair
