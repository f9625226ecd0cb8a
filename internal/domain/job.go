package domain

import (
	"fmt"
	"time"
)

// JobKind identifies a background job handler.
type JobKind int

// Background job kinds.
const (
	JobMetadataLookup JobKind = iota
	JobCoverDownload
	JobBulkSync
	JobLyricsFetch
)

func (k JobKind) String() string {
	switch k {
	case JobMetadataLookup:
		return "metadata_lookup"
	case JobCoverDownload:
		return "cover_download"
	case JobBulkSync:
		return "bulk_sync"
	case JobLyricsFetch:
		return "lyrics_fetch"
	default:
		return fmt.Sprintf("job_kind(%d)", int(k))
	}
}

// NoIndex marks a job that does not target a list position.
const NoIndex = -1

// Job is an immutable unit of background work.
type Job struct {
	ID         string
	Kind       JobKind
	RecordKind Kind
	// Target is a lookup code, a cover URL, or a release id depending on Kind.
	Target string
	Index  int
	// Extra carries the destination path of a cover download.
	Extra      string
	Force      bool
	EnqueuedAt time.Time
}

// JobResult is delivered once per job on the channel returned by Enqueue.
type JobResult struct {
	JobID    string
	Kind     JobKind
	Success  bool
	Message  string
	Record   Record // lookup result, if any
	Finished time.Time
}
