package store

import "errors"

var (
	// ErrProvisioning reports that the target index could not be checked or created.
	ErrProvisioning = errors.New("index provisioning failed")
	// ErrIngest reports a bulk write rejected by the store.
	ErrIngest = errors.New("bulk ingest rejected")
	// ErrQueryExecution reports an invalid query, scan page or aggregation.
	ErrQueryExecution = errors.New("query execution failed")

	ErrNotFound    = errors.New("document not found")
	ErrIndexExists = errors.New("index already exists")
	ErrNoSuchIndex = errors.New("no such index")
	ErrNoSuchScan  = errors.New("no such scan")
)
