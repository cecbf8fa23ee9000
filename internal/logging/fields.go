package logging

// Field names used alongside the zerowrap field constants.
const (
	FieldStep   = "step"
	FieldTarget = "target"
	FieldServer = "server"
	FieldRunID  = "run_id"
	FieldDryRun = "dry_run"
)
