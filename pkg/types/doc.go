// Package types defines the versioned-entity contract, the organizer entity
// types, recurrence patterns, the Store and Codec interfaces, configuration,
// and the standard error values shared by every almanac package.
//
// See docs/ARCHITECTURE § Data Model.
package types
