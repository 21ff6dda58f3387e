// Package engine implements the process-wide state of §3.5 and §4.3:
// variables, partitioned tables, connection handles, the topic map, the
// job table, the source registry, and the tick counter, each behind its
// own readers-writer lock. The evaluator and parser that drive this state
// (§6.4) are external collaborators and are consumed as plain function
// values here, not implemented.
package engine

import (
	"io"
	"strings"
	"sync"
	"weak"

	"github.com/chilidb/chili/columnar"
	"github.com/chilidb/chili/value"
)

// Dialect is the IPC wire dialect a Handle speaks (§4.4.1).
type Dialect int

const (
	DialectV6 Dialect = iota
	DialectV9
)

func (d Dialect) String() string {
	if d == DialectV9 {
		return "v9"
	}
	return "v6"
}

// Role is the connection-role state machine of §4.4.3.
type Role int

const (
	RoleIncoming Role = iota
	RoleOutgoing
	RolePublishing
	RoleSubscribing
	RoleDisconnected
	RoleNew
	RoleFile
	RoleSequence
)

func (r Role) String() string {
	switch r {
	case RoleIncoming:
		return "incoming"
	case RoleOutgoing:
		return "outgoing"
	case RolePublishing:
		return "publishing"
	case RoleSubscribing:
		return "subscribing"
	case RoleDisconnected:
		return "disconnected"
	case RoleNew:
		return "new"
	case RoleFile:
		return "file"
	case RoleSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Handle bundles a connection's owned stream with its routing metadata
// (§3.5 "Handles"). Stream is an io.ReadWriteCloser rather than a net.Conn
// so file handles (New/File/Sequence) share the same table entry shape as
// network handles; package ipc supplies concrete streams.
type Handle struct {
	ID       int64
	Stream   io.ReadWriteCloser
	Socket   string
	URI      string
	Local    bool
	Dialect  Dialect
	Role     Role
	Callback string // on-disconnect callback expression, empty if unset

	mu sync.Mutex // serializes writes to Stream for a single handle
}

// Lock/Unlock serialize sync() calls and reader-thread writes against the
// same handle's stream (§4.3 "no operation takes more than one write lock
// at a time except publish").
func (h *Handle) Lock()   { h.mu.Lock() }
func (h *Handle) Unlock() { h.mu.Unlock() }

// Job is a scheduled evaluation entry (§4.5.6).
type Job struct {
	ID           int64
	FnName       string
	Start        int64
	End          int64
	IntervalNs   int64
	NextRunTime  int64
	LastRunTime  int64
	Active       bool
	Description  string
}

// Clone returns a shallow copy, matching §4.5.6's "clone the Job" step so
// execute_jobs can evaluate off a snapshot without holding the write lock.
func (j Job) Clone() Job { return j }

// sourceEntry is one (path, text) pair in the append-only source registry.
type sourceEntry struct {
	Path string
	Text string
}

// Engine is the single long-lived process-wide instance (§9 "Global
// mutable state"). Every collection lives behind its own RWMutex per §4.3
// "Locking discipline".
type Engine struct {
	self weak.Pointer[Engine]

	varsMu sync.RWMutex
	vars   map[string]value.Value
	// varOrder preserves first-insertion order for ListVars, matching the
	// insertion-ordered feel of the other §3.5 tables.
	varOrder []string

	parMu  sync.RWMutex
	parDFs map[string]*columnar.PartitionedDataFrame

	handlesMu sync.RWMutex
	handles   map[int64]*Handle
	handleIDs []int64 // insertion order

	topicMu sync.RWMutex
	topics  map[string][]int64

	jobsMu   sync.RWMutex
	jobs     map[int64]*Job
	jobOrder []int64
	nextJob  int64

	srcMu      sync.RWMutex
	sources    []sourceEntry
	sourceSeen map[string]int // path -> index, for load_source_path idempotence

	tickMu sync.RWMutex
	tick   int64
}

// New constructs an Engine and obtains its own weak self-reference
// (§9 "Cyclic ownership"), which Self upgrades.
func New() *Engine {
	e := &Engine{
		vars:       make(map[string]value.Value),
		parDFs:     make(map[string]*columnar.PartitionedDataFrame),
		handles:    make(map[int64]*Handle),
		topics:     make(map[string][]int64),
		jobs:       make(map[int64]*Job),
		nextJob:    1,
		sourceSeen: make(map[string]int),
	}
	e.self = weak.Make(e)
	return e
}

// Self upgrades the engine's own weak self-reference and returns the
// engine. Reader goroutines spawned by package ipc do not call it; they
// keep a weak pointer of their own to the engine and upgrade it once per
// message.
func (e *Engine) Self() *Engine { return e.self.Value() }

// --- Variables (§4.3 "Operations on variables") ---

func (e *Engine) Get(name string) (value.Value, bool) {
	e.varsMu.RLock()
	defer e.varsMu.RUnlock()
	v, ok := e.vars[name]
	return v, ok
}

func (e *Engine) Has(name string) bool {
	e.varsMu.RLock()
	defer e.varsMu.RUnlock()
	_, ok := e.vars[name]
	return ok
}

func (e *Engine) Set(name string, v value.Value) {
	e.varsMu.Lock()
	defer e.varsMu.Unlock()
	if _, exists := e.vars[name]; !exists {
		e.varOrder = append(e.varOrder, name)
	}
	e.vars[name] = v
}

func (e *Engine) Del(name string) {
	e.varsMu.Lock()
	defer e.varsMu.Unlock()
	if _, exists := e.vars[name]; !exists {
		return
	}
	delete(e.vars, name)
	for i, n := range e.varOrder {
		if n == name {
			e.varOrder = append(e.varOrder[:i], e.varOrder[i+1:]...)
			break
		}
	}
}

// Upsert implements §4.3 "upsert": create a new DataFrame variable if
// absent, otherwise append other's rows to the existing DataFrame.
func (e *Engine) Upsert(name string, other *columnar.DataFrame) error {
	e.varsMu.Lock()
	defer e.varsMu.Unlock()
	cur, exists := e.vars[name]
	if !exists {
		e.vars[name] = other
		e.varOrder = append(e.varOrder, name)
		return nil
	}
	df, ok := cur.(*columnar.DataFrame)
	if !ok {
		return value.NewError(value.KindMismatchedType, "upsert: %s is not a dataframe", name)
	}
	return df.Upsert(other)
}

// Insert implements §4.3 "insert": append then group-by-last on by,
// returning the net row-count delta.
func (e *Engine) Insert(name string, other *columnar.DataFrame, by []string) (int, error) {
	e.varsMu.Lock()
	defer e.varsMu.Unlock()
	cur, exists := e.vars[name]
	if !exists {
		e.vars[name] = other
		e.varOrder = append(e.varOrder, name)
		return other.Height(), nil
	}
	df, ok := cur.(*columnar.DataFrame)
	if !ok {
		return 0, value.NewError(value.KindMismatchedType, "insert: %s is not a dataframe", name)
	}
	return df.InsertGroupByLast(other, by)
}

// ListVars returns variable names matching pattern's glob wildcards (`*`
// and `?`), in insertion order — §6.5 names the operation but leaves its
// matching semantics unspecified; this module's Open Question resolution
// adapts path.Match-style glob matching to plain strings.
func (e *Engine) ListVars(pattern string) []string {
	e.varsMu.RLock()
	defer e.varsMu.RUnlock()
	if pattern == "" || pattern == "*" {
		return append([]string(nil), e.varOrder...)
	}
	var out []string
	for _, n := range e.varOrder {
		if globMatch(pattern, n) {
			out = append(out, n)
		}
	}
	return out
}

// globMatch implements `*`/`?` glob matching over plain strings
// (case-sensitive, matching §3.1's Symbol case-sensitivity rule).
func globMatch(pattern, s string) bool {
	return globMatchRec(pattern, s)
}

func globMatchRec(p, s string) bool {
	for len(p) > 0 {
		switch p[0] {
		case '*':
			// collapse consecutive stars
			for len(p) > 0 && p[0] == '*' {
				p = p[1:]
			}
			if len(p) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if globMatchRec(p, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			p, s = p[1:], s[1:]
		default:
			if len(s) == 0 || s[0] != p[0] {
				return false
			}
			p, s = p[1:], s[1:]
		}
	}
	return len(s) == 0
}

// --- Partitioned tables (§4.3 "Partitioned tables") ---

func (e *Engine) LoadParDF(name, root string, logSkip func(string)) (*columnar.PartitionedDataFrame, error) {
	pdf, err := columnar.LoadParDF(name, root, logSkip)
	if err != nil {
		return nil, err
	}
	e.parMu.Lock()
	e.parDFs[name] = pdf
	e.parMu.Unlock()
	return pdf, nil
}

func (e *Engine) GetParDF(name string) (*columnar.PartitionedDataFrame, bool) {
	e.parMu.RLock()
	defer e.parMu.RUnlock()
	pdf, ok := e.parDFs[name]
	return pdf, ok
}

// --- Handles ---

// AddHandle inserts h, assigning an id when h.ID is zero: "1 +
// max(existing ids, 3)" (§5 "Ordering guarantees"), so the first handle is
// id 4 and ids 0-3 stay reserved.
func (e *Engine) AddHandle(h *Handle) int64 {
	e.handlesMu.Lock()
	defer e.handlesMu.Unlock()
	if h.ID == 0 {
		max := int64(3)
		for id := range e.handles {
			if id > max {
				max = id
			}
		}
		h.ID = max + 1
	}
	e.handles[h.ID] = h
	e.handleIDs = append(e.handleIDs, h.ID)
	return h.ID
}

func (e *Engine) GetHandle(id int64) (*Handle, bool) {
	e.handlesMu.RLock()
	defer e.handlesMu.RUnlock()
	h, ok := e.handles[id]
	return h, ok
}

// CloseHandle closes the underlying stream (best-effort) and removes id
// from the handle table (§5 "A Disconnected handle is not auto-reaped;
// ... until close_handle(id) explicitly removes it").
func (e *Engine) CloseHandle(id int64) error {
	e.handlesMu.Lock()
	h, ok := e.handles[id]
	if ok {
		delete(e.handles, id)
		for i, hid := range e.handleIDs {
			if hid == id {
				e.handleIDs = append(e.handleIDs[:i], e.handleIDs[i+1:]...)
				break
			}
		}
	}
	e.handlesMu.Unlock()
	if !ok {
		return value.NewError(value.KindInvalidHandle, "close_handle: no such handle %d", id)
	}
	if h.Stream != nil {
		return h.Stream.Close()
	}
	return nil
}

func (e *Engine) ListHandles() []*Handle {
	e.handlesMu.RLock()
	defer e.handlesMu.RUnlock()
	out := make([]*Handle, 0, len(e.handleIDs))
	for _, id := range e.handleIDs {
		out = append(out, e.handles[id])
	}
	return out
}

func (e *Engine) SetRole(id int64, role Role) error {
	e.handlesMu.Lock()
	defer e.handlesMu.Unlock()
	h, ok := e.handles[id]
	if !ok {
		return value.NewError(value.KindInvalidHandle, "set role: no such handle %d", id)
	}
	h.Role = role
	return nil
}

func (e *Engine) SetCallback(id int64, expr string) error {
	e.handlesMu.Lock()
	defer e.handlesMu.Unlock()
	h, ok := e.handles[id]
	if !ok {
		return value.NewError(value.KindInvalidHandle, "set_callback: no such handle %d", id)
	}
	h.Callback = expr
	return nil
}

// --- Topic map (§4.5.4) ---

// TopicSubscribers returns the handle ids registered for topic, in
// subscribe order.
func (e *Engine) TopicSubscribers(topic string) []int64 {
	e.topicMu.RLock()
	defer e.topicMu.RUnlock()
	return append([]int64(nil), e.topics[topic]...)
}

// Subscribe adds handleID to each topic's subscriber list and transitions
// the handle Incoming -> Publishing (§4.4.3, §4.5.4).
func (e *Engine) Subscribe(handleID int64, topics []string) error {
	if err := e.SetRole(handleID, RolePublishing); err != nil {
		return err
	}
	e.topicMu.Lock()
	defer e.topicMu.Unlock()
	for _, t := range topics {
		if !containsID(e.topics[t], handleID) {
			e.topics[t] = append(e.topics[t], handleID)
		}
	}
	return nil
}

func (e *Engine) Unsubscribe(handleID int64, topics []string) {
	e.topicMu.Lock()
	defer e.topicMu.Unlock()
	for _, t := range topics {
		e.topics[t] = removeID(e.topics[t], handleID)
	}
}

// RemoveFromTopic drops handleID from topic's list; used by publish when
// the handle id no longer exists in the handle table (§4.5.3 step 5).
func (e *Engine) RemoveFromTopic(topic string, handleID int64) {
	e.topicMu.Lock()
	defer e.topicMu.Unlock()
	e.topics[topic] = removeID(e.topics[topic], handleID)
}

func (e *Engine) ListTopicMap() map[string][]int64 {
	e.topicMu.RLock()
	defer e.topicMu.RUnlock()
	out := make(map[string][]int64, len(e.topics))
	for k, v := range e.topics {
		out[k] = append([]int64(nil), v...)
	}
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// --- Jobs (§4.5.6) ---

// AddJob inserts job, assigning an auto-incrementing id starting at 1.
// ClearJobs does not reset the counter (§9 Open Questions).
func (e *Engine) AddJob(j *Job) int64 {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	j.ID = e.nextJob
	e.nextJob++
	e.jobs[j.ID] = j
	e.jobOrder = append(e.jobOrder, j.ID)
	return j.ID
}

func (e *Engine) ListJobs() []Job {
	e.jobsMu.RLock()
	defer e.jobsMu.RUnlock()
	out := make([]Job, 0, len(e.jobOrder))
	for _, id := range e.jobOrder {
		out = append(out, *e.jobs[id])
	}
	return out
}

// Activate sets is_active for the job matching id (parsed from the
// pattern as an integer) or, failing that, treats pattern as a
// description substring and activates every matching job (§4.5.6
// "activate_by_pattern").
func (e *Engine) Activate(idOrPattern string, active bool) int {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	if id, ok := parseJobID(idOrPattern); ok {
		if j, exists := e.jobs[id]; exists {
			j.Active = active
			return 1
		}
		return 0
	}
	n := 0
	for _, j := range e.jobs {
		if strings.Contains(j.Description, idOrPattern) {
			j.Active = active
			n++
		}
	}
	return n
}

func parseJobID(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	var n int64
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int64(c-'0')
	}
	return n, true
}

func (e *Engine) ClearJobs() {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	e.jobs = make(map[int64]*Job)
	e.jobOrder = nil
}

// SnapshotJobs returns a read-locked copy of the jobs table for
// execute_jobs to evaluate against without holding the lock during
// (potentially slow) function evaluation.
func (e *Engine) SnapshotJobs() []Job { return e.ListJobs() }

// ApplyJobUpdates writes back the given jobs under the write lock (§4.5.6
// "Write the updated jobs back under write lock").
func (e *Engine) ApplyJobUpdates(updated []Job) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	for _, u := range updated {
		if _, ok := e.jobs[u.ID]; ok {
			j := u
			e.jobs[u.ID] = &j
		}
	}
}

// --- Source registry (§4.3 "Source registry") ---

func (e *Engine) SetSource(path, text string) int {
	e.srcMu.Lock()
	defer e.srcMu.Unlock()
	idx := len(e.sources)
	e.sources = append(e.sources, sourceEntry{Path: path, Text: text})
	e.sourceSeen[path] = idx
	return idx
}

func (e *Engine) GetSource(i int) (path, text string, ok bool) {
	e.srcMu.RLock()
	defer e.srcMu.RUnlock()
	if i < 0 || i >= len(e.sources) {
		return "", "", false
	}
	s := e.sources[i]
	return s.Path, s.Text, true
}

// LoadSourcePath records (path, text) unless path was already loaded,
// returning the existing index in that case (§4.3 idempotence).
func (e *Engine) LoadSourcePath(path, text string) int {
	e.srcMu.Lock()
	defer e.srcMu.Unlock()
	if idx, ok := e.sourceSeen[path]; ok {
		return idx
	}
	idx := len(e.sources)
	e.sources = append(e.sources, sourceEntry{Path: path, Text: text})
	e.sourceSeen[path] = idx
	return idx
}

// --- Tick count ---

func (e *Engine) Tick() int64 {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.tick++
	return e.tick
}

func (e *Engine) TickCount() int64 {
	e.tickMu.RLock()
	defer e.tickMu.RUnlock()
	return e.tick
}

// Shutdown closes every handle (best-effort) and clears all five
// RW-locked collections (variables, partitioned tables, handles, topic
// map, jobs); the source registry and tick count are left intact since
// they carry no live resources to release. Supplements §6.4/§6.5, named
// but not specified by the distilled spec (see DESIGN.md).
func (e *Engine) Shutdown() {
	e.handlesMu.Lock()
	for _, h := range e.handles {
		if h.Stream != nil {
			_ = h.Stream.Close()
		}
	}
	e.handles = make(map[int64]*Handle)
	e.handleIDs = nil
	e.handlesMu.Unlock()

	e.varsMu.Lock()
	e.vars = make(map[string]value.Value)
	e.varOrder = nil
	e.varsMu.Unlock()

	e.parMu.Lock()
	e.parDFs = make(map[string]*columnar.PartitionedDataFrame)
	e.parMu.Unlock()

	e.topicMu.Lock()
	e.topics = make(map[string][]int64)
	e.topicMu.Unlock()

	e.jobsMu.Lock()
	e.jobs = make(map[int64]*Job)
	e.jobOrder = nil
	e.jobsMu.Unlock()
}
