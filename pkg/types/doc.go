// Package types defines the DataStore interface, the data-model entities
// (info areas, fields, links, catalogs), logical CRM records, sync
// checkpoints and the standard errors of the offline CRM store.
package types
