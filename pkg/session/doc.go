/*
Package session implements document management and persistence orchestration.

A Manager opens documents (starting them on first use), applies commands to
them one at a time, saves every new revision and then tells its observers.
Commands on one document are serialized by a reference counted local mutex
and, across replicas, by an optional distributed lock.
*/
package session
