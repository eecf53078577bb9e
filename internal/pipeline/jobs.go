package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/rbshaffer/constitute-tools/internal/tabulate"
	"github.com/rbshaffer/constitute-tools/internal/tagging"
)

// JobStatus represents the state of a tabulation job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusLoading    JobStatus = "loading"
	StatusSegmenting JobStatus = "segmenting"
	StatusTagging    JobStatus = "tagging"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single document tabulation.
type Job struct {
	mu sync.Mutex

	ID       string    `json:"job_id"`
	Filename string    `json:"filename"`
	Profile  string    `json:"profile"`
	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Title    string    `json:"title"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Options and Records are fixed at submission.
	Options tabulate.Options `json:"-"`
	Records []tagging.Record `json:"-"`

	fileData []byte
	result   *tabulate.Result
	errors   []string
	done     chan struct{}
	finished bool
}

// NewJob creates a queued job for the named file.
func NewJob(filename, profile string, data []byte, opts tabulate.Options, records []tagging.Record) *Job {
	now := time.Now()
	return &Job{
		ID:          generateULID(),
		Filename:    filename,
		Profile:     profile,
		Status:      StatusQueued,
		Phase:       "queued",
		ContentHash: ContentHashHex(data),
		CreatedAt:   now,
		UpdatedAt:   now,
		Options:     opts,
		Records:     records,
		fileData:    data,
		done:        make(chan struct{}),
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Len reports how many jobs are held.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL.
// Jobs still in flight are never evicted.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := job.finished && now.Sub(job.UpdatedAt) > s.ttl
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.UpdatedAt = time.Now()
}

// SetTitle records the title the loader found.
func (j *Job) SetTitle(title string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Title == "" {
		j.Title = title
	}
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Result returns the tabulation result, or nil until the job completes.
func (j *Job) Result() *tabulate.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Done is closed once the job has completed or failed.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// complete stores res, marks the job completed and releases waiters.
func (j *Job) complete(res *tabulate.Result) {
	j.mu.Lock()
	j.result = res
	j.fileData = nil
	j.mu.Unlock()
	j.SetStatus(StatusCompleted, "done")
	j.finish()
}

// fail records err, marks the job failed in phase and releases waiters.
func (j *Job) fail(phase string, err error) {
	j.AddError(err.Error())
	j.mu.Lock()
	j.fileData = nil
	j.mu.Unlock()
	j.SetStatus(StatusFailed, phase)
	j.finish()
}

func (j *Job) finish() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished {
		return
	}
	j.finished = true
	if j.done != nil {
		close(j.done)
	}
}

// Progress summarizes what a job has produced so far.
type Progress struct {
	Rows          int      `json:"rows"`
	Sections      int      `json:"sections"`
	TotalTags     int      `json:"total_tags"`
	UnmatchedTags int      `json:"unmatched_tags"`
	DanglingLists []int    `json:"dangling_lists"`
	Desync        bool     `json:"desync"`
	Errors        []string `json:"errors"`
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	Profile     string    `json:"profile"`
	Title       string    `json:"title"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.errors...)
	p := Progress{
		TotalTags:     len(j.Records),
		DanglingLists: []int{},
		Errors:        errs,
	}
	if res := j.result; res != nil {
		p.Rows = len(res.Rows)
		p.Sections = len(res.Outline)
		p.UnmatchedTags = len(res.Report)
		p.Desync = res.Desync != nil
		p.DanglingLists = append(p.DanglingLists, res.DanglingLists...)
	}
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		Profile:     j.Profile,
		Title:       j.Title,
		ContentHash: j.ContentHash,
		Progress:    p,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
