// Package pgtest boots a throwaway PostgreSQL with the schema applied for integration tests.
// Its helpers are compiled only with the integration build tag.
package pgtest
