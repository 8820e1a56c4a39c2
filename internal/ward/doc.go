// Package ward provides the business boundary for wardwatch's alert
// triage system. It defines the Service (view composition, operator
// actions, feed regeneration), the pure filter and aggregation functions,
// the Store interface, and the domain models.
package ward
