package constants

// DocumentStatus is the outcome recorded for one document in a batch.
type DocumentStatus string

// Stable values (stored verbatim in the run ledger).
const (
	DocumentSucceeded DocumentStatus = "SUCCEEDED" // rows extracted
	DocumentSkipped   DocumentStatus = "SKIPPED"   // nothing usable, batch continues
	DocumentFailed    DocumentStatus = "FAILED"    // stage error, batch continues
)

// Stage names the pipeline step an event refers to.
type Stage string

const (
	StageAcquire   Stage = "ACQUIRE"
	StageStructure Stage = "STRUCTURE"
	StageParse     Stage = "PARSE"
	StageFlatten   Stage = "FLATTEN"
	StagePersist   Stage = "PERSIST"
)
