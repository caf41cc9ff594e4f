package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/hdlreplay/internal/driver"
	"github.com/roach88/hdlreplay/internal/ir"
)

// ErrNotConstructing is returned when an event arrives outside an invocation
// (before OnEnterConstruction or after OnConstructionExit).
var ErrNotConstructing = errors.New("event reported outside a construction invocation")

// Recorder is the TraceEventRecorder: it receives the events of each replay
// invocation, keeps the stack of open decision scopes, and merges finished
// scopes into the behavior tree.
//
// INVARIANTS:
//   - Only the innermost open scope accepts new events (LIFO exploration)
//   - A scope closes only after all of its outcomes were explored
//     (2 for a branch, k+1 for a switch over k candidates)
//   - Every open scope below the top is locked to its current outcome
//
// A Recorder is owned by exactly one replay loop and is not safe for
// concurrent use.
type Recorder struct {
	module    string
	maxEvents int

	stack []*scope
	sites map[ir.SiteID]string // decision site -> kind and domain

	// endpoints is the module-wide endpoint registry. Its occupancy is
	// never used; per-path occupancy lives in run.path.
	endpoints *driver.Table

	invocations int
	err         error
	tree        *ir.Tree

	run runState
}

type phase int

const (
	// phasePrefix replays the locked path down to the exploring scope's decision.
	phasePrefix phase = iota

	// phaseExplore records the outcome being explored.
	phaseExplore

	// phaseTrailing replays the exploring scope's reference trace after the
	// outcome rejoined it.
	phaseTrailing
)

// runState is the per-invocation cursor into the exploration state.
type runState struct {
	active   bool
	raw      []ir.Event
	phase    phase
	cursor   int
	explorer *scope
	depth    int // stack depth at OnEnterConstruction
	joinRaw  int // index in raw where the explorer rejoined, -1 if not yet
	path     *driver.Table
	events   int
}

// entry is one recorded item of a scope body: an assignment, or a decision
// that has already been merged into a node.
type entry struct {
	key  ir.EventKey
	node ir.Node
}

// scope is one open decision on the exploration stack.
type scope struct {
	root     bool
	decision ir.Event
	outcomes int
	cur      int

	// bodies holds the entries recorded per outcome. bodies[0] is the
	// reference body: it runs from the decision to the end of the opening
	// invocation and already contains every merged descendant.
	bodies [][]entry

	// joins holds, per outcome, the index into ref at which that outcome
	// rejoined the reference trace, or -1 if it never did.
	joins []int

	// prefix is the raw trace of the opening invocation up to and including
	// the decision. ref is the rest of that invocation: the reference trace.
	prefix   []ir.Event
	ref      []ir.Event
	refIndex map[ir.EventKey]int

	// refLimit is the index into ref at which entry recording stopped in the
	// opening invocation (because an enclosing outcome rejoined there).
	refLimit int

	rawStart int
}

// NewRecorder creates a Recorder for one module elaboration.
// maxEvents bounds the events of a single invocation (0 = unbounded).
func NewRecorder(module string, maxEvents int) *Recorder {
	r := &Recorder{module: module, maxEvents: maxEvents}
	r.Reset()
	return r
}

// Reset discards all exploration state and leaves a single implicit root scope.
func (r *Recorder) Reset() {
	r.stack = []*scope{{root: true, outcomes: 1, bodies: make([][]entry, 1)}}
	r.sites = make(map[ir.SiteID]string)
	r.endpoints = driver.New()
	r.invocations = 0
	r.err = nil
	r.tree = nil
	r.run = runState{}
}

// Invocations returns the number of invocations started so far.
func (r *Recorder) Invocations() int {
	return r.invocations
}

// Done reports whether the root scope has merged and the tree is frozen.
func (r *Recorder) Done() bool {
	return r.tree != nil
}

// Tree returns the frozen behavior tree, or nil before Done.
func (r *Recorder) Tree() *ir.Tree {
	return r.tree
}

// Depth returns the number of open decision scopes (excluding the root).
func (r *Recorder) Depth() int {
	return len(r.stack) - 1
}

// OnEnterConstruction starts a new invocation at the implicit root scope.
func (r *Recorder) OnEnterConstruction() {
	r.invocations++
	top := r.stack[len(r.stack)-1]
	r.run = runState{
		active:   true,
		explorer: top,
		depth:    len(r.stack),
		joinRaw:  -1,
		path:     driver.New(),
		phase:    phasePrefix,
	}
	if top.root {
		r.run.phase = phaseExplore
	}
	for _, ep := range r.endpoints.Endpoints() {
		// Widths already agree with the registry; this cannot fail.
		_ = r.run.path.RegisterEndpoint(ep.Name, ep.Width)
	}
}

// RegisterEndpoint declares a destination endpoint and its width.
// Re-registering with the same width is a no-op.
func (r *Recorder) RegisterEndpoint(dest ir.Endpoint, width int) error {
	if err := r.fail(); err != nil {
		return err
	}
	if err := r.endpoints.RegisterEndpoint(dest, width); err != nil {
		return r.abort(wrapDriverError(r.module, ir.SiteID{}, dest, ir.FullRange(width), err))
	}
	if r.run.active {
		_ = r.run.path.RegisterEndpoint(dest, width)
	}
	return nil
}

// Width returns the registered width of dest.
func (r *Recorder) Width(dest ir.Endpoint) (int, bool) {
	return r.endpoints.Width(dest)
}

// OnBranchDecision reports a boolean decision and returns the outcome this
// invocation must take.
func (r *Recorder) OnBranchDecision(site ir.SiteID, cond ir.Operand) (bool, error) {
	outcome, err := r.decide(ir.Event{Kind: ir.EventBranch, Site: site, Cond: cond})
	if err != nil {
		return false, err
	}
	return outcome == 0, nil
}

// OnSwitchDecision reports an enumerated decision over candidates and returns
// the value this invocation must observe: one of the candidates, or a
// synthetic default distinct from all of them. Duplicate candidates are
// dropped, keeping the first occurrence.
func (r *Recorder) OnSwitchDecision(site ir.SiteID, value ir.Operand, candidates []int64) (int64, error) {
	cands := dedupe(candidates)
	outcome, err := r.decide(ir.Event{Kind: ir.EventSwitch, Site: site, Cond: value, Candidates: cands})
	if err != nil {
		return DefaultCandidate(cands), err
	}
	if outcome < len(cands) {
		return cands[outcome], nil
	}
	return DefaultCandidate(cands), nil
}

// OnAssignment reports a write of source to rng of dest.
func (r *Recorder) OnAssignment(site ir.SiteID, dest ir.Endpoint, rng ir.BitRange, source ir.Operand) error {
	if err := r.begin(site); err != nil {
		return err
	}
	ev := ir.Event{Kind: ir.EventAssign, Site: site, Dest: dest, Range: rng, Source: source}
	r.adoptRecordedSite(&ev)

	switch r.run.phase {
	case phasePrefix:
		if err := r.matchPrefix(ev); err != nil {
			return r.abort(err)
		}
	case phaseExplore:
		if r.tryJoin(ev) {
			if _, err := r.matchTrailing(ev); err != nil {
				return r.abort(err)
			}
		} else {
			node := &ir.AssignNode{Site: ev.Site, Dest: dest, Range: rng, Source: source}
			r.record(entry{key: ev.Key(), node: node})
		}
	case phaseTrailing:
		if _, err := r.matchTrailing(ev); err != nil {
			return r.abort(err)
		}
	}
	r.run.raw = append(r.run.raw, ev)

	if err := r.run.path.Assign(dest, ir.Driver{Range: rng, Source: source, Site: ev.Site}); err != nil {
		ee := wrapDriverError(r.module, ev.Site, dest, rng, err)
		ee.Invocation = r.invocations
		return r.abort(ee)
	}
	return nil
}

// OnConstructionExit marks the end of the invocation. It advances the top
// scope to its next unexplored outcome, or merges exhausted scopes into their
// parents until one can advance. done is true once the root has merged and
// the tree is frozen.
func (r *Recorder) OnConstructionExit() (done bool, err error) {
	if err := r.fail(); err != nil {
		return false, err
	}
	if !r.run.active {
		return false, ErrNotConstructing
	}

	ex := r.run.explorer
	switch r.run.phase {
	case phasePrefix:
		want := ex.prefix[r.run.cursor]
		return false, r.abort(r.divergence(want.Site,
			fmt.Sprintf("invocation ended before reaching %s", want)))
	case phaseTrailing:
		if r.run.cursor != len(ex.ref) {
			want := ex.ref[r.run.cursor]
			return false, r.abort(r.divergence(want.Site,
				fmt.Sprintf("invocation ended early; recorded trace continues with %s", want)))
		}
	}

	r.run.active = false
	r.finishOpened()
	done, err = r.advance()
	if err != nil {
		return false, r.abort(err)
	}
	return done, nil
}

// decide handles a branch or switch event and returns the outcome index.
func (r *Recorder) decide(ev ir.Event) (int, error) {
	if err := r.begin(ev.Site); err != nil {
		return 0, err
	}
	r.adoptRecordedSite(&ev)
	if err := r.checkSite(ev); err != nil {
		return 0, r.abort(err)
	}

	var (
		outcome int
		open    bool
		err     error
	)
	switch r.run.phase {
	case phasePrefix:
		ex := r.run.explorer
		if err := r.matchPrefix(ev); err != nil {
			return 0, r.abort(err)
		}
		if r.run.cursor == len(ex.prefix) {
			outcome = ex.cur
			r.run.phase = phaseExplore
		} else {
			outcome = ex.prefix[r.run.cursor-1].Outcome
		}
	case phaseExplore:
		if r.tryJoin(ev) {
			outcome, err = r.matchTrailing(ev)
		} else {
			open = true
		}
	case phaseTrailing:
		outcome, err = r.matchTrailing(ev)
	}
	if err != nil {
		return 0, r.abort(err)
	}

	ev.Outcome = outcome
	r.run.raw = append(r.run.raw, ev)
	if open {
		r.stack = append(r.stack, &scope{
			decision: ev,
			outcomes: ev.Outcomes(),
			bodies:   make([][]entry, ev.Outcomes()),
			joins:    filled(ev.Outcomes(), -1),
			rawStart: len(r.run.raw),
		})
	}
	return outcome, nil
}

// begin validates that an event may be accepted and counts it against the
// per-invocation event bound.
func (r *Recorder) begin(site ir.SiteID) error {
	if err := r.fail(); err != nil {
		return err
	}
	if !r.run.active {
		return ErrNotConstructing
	}
	r.run.events++
	if n := r.run.events; r.maxEvents > 0 && n > r.maxEvents {
		ee := NewNonDeterministicError(r.module, "events per invocation", n, r.maxEvents)
		ee.Site = site
		ee.Invocation = r.invocations
		return r.abort(ee)
	}
	return nil
}

// checkSite enforces that a decision site keeps its kind and value domain
// across every invocation that reaches it.
func (r *Recorder) checkSite(ev ir.Event) error {
	now := string(ev.Kind) + " " + ev.Domain()
	if was, ok := r.sites[ev.Site]; ok && was != now {
		ee := NewInconsistentSiteError(r.module, ev.Site, was, now)
		ee.Invocation = r.invocations
		return ee
	}
	r.sites[ev.Site] = now
	return nil
}

// adoptRecordedSite gives ev the site of the event it is expected to replay
// when the two differ only in occurrence. Occurrence counts follow the
// outcomes taken earlier in the invocation, so a statement reached after a
// join (a conditional inside a loop, say) may count differently than it did
// when the reference trace was recorded.
func (r *Recorder) adoptRecordedSite(ev *ir.Event) {
	ex := r.run.explorer
	var want []ir.Event
	switch r.run.phase {
	case phasePrefix:
		want = ex.prefix
	case phaseTrailing:
		want = ex.ref
	default:
		return
	}
	if r.run.cursor >= len(want) {
		return
	}
	if rec := want[r.run.cursor]; sameStatement(rec, *ev) {
		ev.Site = rec.Site
	}
}

// sameStatement reports whether a and b have equal keys apart from the site
// occurrence.
func sameStatement(a, b ir.Event) bool {
	ka, kb := a.Key(), b.Key()
	ka.Site.Occurrence, kb.Site.Occurrence = 0, 0
	return ka == kb
}

func (r *Recorder) matchPrefix(ev ir.Event) error {
	ex := r.run.explorer
	want := ex.prefix[r.run.cursor]
	if want.Key() != ev.Key() {
		return r.divergence(ev.Site, fmt.Sprintf("expected %s, got %s", want, ev))
	}
	r.run.cursor++
	return nil
}

func (r *Recorder) matchTrailing(ev ir.Event) (int, error) {
	ex := r.run.explorer
	if r.run.cursor >= len(ex.ref) {
		return 0, r.divergence(ev.Site, fmt.Sprintf("recorded trace ended, got %s", ev))
	}
	want := ex.ref[r.run.cursor]
	if want.Key() != ev.Key() {
		return 0, r.divergence(ev.Site, fmt.Sprintf("expected %s, got %s", want, ev))
	}
	r.run.cursor++
	return want.Outcome, nil
}

// tryJoin checks whether ev already appears in the exploring scope's
// reference trace. If so the current outcome has rejoined code shared with
// the reference outcome, and the rest of the invocation replays that trace.
func (r *Recorder) tryJoin(ev ir.Event) bool {
	ex := r.run.explorer
	if ex.root || ex.cur == 0 {
		return false
	}
	idx, ok := ex.refIndex[ev.Key()]
	if !ok {
		return false
	}
	ex.joins[ex.cur] = idx
	r.run.phase = phaseTrailing
	r.run.cursor = idx
	r.run.joinRaw = len(r.run.raw)
	return true
}

// record appends to the innermost scope's current outcome.
func (r *Recorder) record(e entry) {
	top := r.stack[len(r.stack)-1]
	top.bodies[top.cur] = append(top.bodies[top.cur], e)
}

// finishOpened captures the prefix and reference traces of the scopes opened
// during the invocation that just ended.
func (r *Recorder) finishOpened() {
	raw := r.run.raw
	for _, s := range r.stack[r.run.depth:] {
		s.prefix = slices.Clone(raw[:s.rawStart])
		s.ref = slices.Clone(raw[s.rawStart:])
		s.refIndex = make(map[ir.EventKey]int, len(s.ref))
		for i, ev := range s.ref {
			s.refIndex[ev.Key()] = i
		}
		s.refLimit = len(s.ref)
		if r.run.joinRaw >= 0 {
			s.refLimit = max(0, r.run.joinRaw-s.rawStart)
		}
	}
}

// advance moves exploration forward after an invocation: the top scope takes
// its next outcome, or merges into its parent when exhausted, repeating until
// a scope can advance or the root is reached.
func (r *Recorder) advance() (bool, error) {
	for {
		top := r.stack[len(r.stack)-1]
		if top.root {
			r.tree = &ir.Tree{
				Module:    r.module,
				Endpoints: r.endpoints.Endpoints(),
				Root:      nodes(top.bodies[0]),
			}
			return true, nil
		}

		top.cur++
		if top.cur < top.outcomes {
			return false, nil
		}

		node, trailing, err := r.unwind(top)
		if err != nil {
			return false, err
		}
		r.stack = r.stack[:len(r.stack)-1]
		parent := r.stack[len(r.stack)-1]
		body := append(parent.bodies[parent.cur], entry{key: top.decision.Key(), node: node})
		parent.bodies[parent.cur] = append(body, trailing...)
	}
}

func (r *Recorder) divergence(site ir.SiteID, msg string) *ElaborationError {
	ee := NewDivergenceError(r.module, site, msg)
	ee.Invocation = r.invocations
	return ee
}

// abort makes err sticky: every later call fails with it.
func (r *Recorder) abort(err error) error {
	if r.err == nil {
		r.err = err
	}
	r.run.active = false
	return err
}

func (r *Recorder) fail() error {
	return r.err
}

// DefaultCandidate returns the synthetic "none matched" value for a candidate
// set: probing down from -1 until no declared candidate collides.
func DefaultCandidate(candidates []int64) int64 {
	v := int64(-1)
	for slices.Contains(candidates, v) {
		v--
	}
	return v
}

func dedupe(candidates []int64) []int64 {
	out := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func filled(n, v int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func nodes(entries []entry) []ir.Node {
	out := make([]ir.Node, len(entries))
	for i, e := range entries {
		out[i] = e.node
	}
	return out
}
