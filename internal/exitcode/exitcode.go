package exitcode

const (
	Success        = 0
	UsageError     = 1
	StoreConnError = 2
	JobFailure     = 3
	PartialFailure = 4
	SourceError    = 5
)
