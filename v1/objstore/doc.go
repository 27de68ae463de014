// Package objstore abstracts a key/object namespace with conditional
// writes. A Store returns an opaque version token for every write and can
// make a Put conditional on the key being absent or on its current version
// matching a previously observed token. That single primitive is what the
// lock and cache packages build on; no other coordination channel exists.
// Backends are provided for in-process maps, Redis, Amazon S3, NATS
// JetStream key/value buckets and SQL databases through GORM.
package objstore
