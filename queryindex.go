package hollowecs

import "go.uber.org/zap"

// QueryIndex owns every distinct Query created in a World and keeps each
// one's membership current as entities gain or lose components, or are
// destroyed (spec §4.4, §4.5). Grounded on the teacher's World.filterCache
// (filter.go / world.go), generalized from archetype-granularity matching
// (an archetype as a whole either matches a Filter or doesn't) to
// entity-granularity matching, since this port has no archetype layer:
// each entity's own mask is tested against every live Query independently.
type QueryIndex struct {
	byKey  map[string]*Query
	all    []*Query
	log    *zap.Logger
	metaOf func(Entity) *entityMeta
}

func newQueryIndex(log *zap.Logger, metaOf func(Entity) *entityMeta) *QueryIndex {
	return &QueryIndex{
		byKey:  make(map[string]*Query),
		log:    log,
		metaOf: metaOf,
	}
}

// getOrCreate returns the Query for spec. created is true the first time
// this exact required/forbidden combination is requested; the caller is
// responsible for silently backfilling current matches in that case (spec
// §4.4: initial population must not fire EntityAdded).
func (qi *QueryIndex) getOrCreate(spec QuerySpec) (q *Query, created bool) {
	if q, ok := qi.byKey[spec.key]; ok {
		return q, false
	}
	q = newQuery(spec, qi.log)
	qi.byKey[spec.key] = q
	qi.all = append(qi.all, q)
	return q, true
}

// backfill silently attaches e to q if it already matches, without emitting
// EntityAdded. Used only right after a Query is created.
func (qi *QueryIndex) backfill(q *Query, e Entity, meta *entityMeta) {
	if q.matches(meta.mask) {
		qi.addMember(q, e, meta, false)
	}
}

func (qi *QueryIndex) addMember(q *Query, e Entity, meta *entityMeta, notify bool) {
	if _, already := meta.memberships[q]; already {
		return
	}
	if meta.memberships == nil {
		meta.memberships = make(map[*Query]int)
	}
	meta.memberships[q] = len(q.entities)
	q.entities = append(q.entities, e)
	if notify {
		q.dispatcher.Emit("EntityAdded", e)
	}
}

// removeMember splices e out of q.entities, preserving the relative order of
// every other member (spec §3: query membership is insertion-ordered), and
// re-indexes the entities shifted down by the splice. This is O(n) in the
// query's size rather than the O(1) swap-remove a sparse-set would give;
// see DESIGN.md's C4/C5 entry for why this port takes the slower path.
func (qi *QueryIndex) removeMember(q *Query, e Entity, meta *entityMeta, notify bool) {
	idx, ok := meta.memberships[q]
	if !ok {
		return
	}
	q.entities = append(q.entities[:idx], q.entities[idx+1:]...)
	delete(meta.memberships, q)
	for i := idx; i < len(q.entities); i++ {
		if sm := qi.metaOf(q.entities[i]); sm != nil {
			sm.memberships[q] = i
		}
	}
	if notify {
		q.dispatcher.Emit("EntityRemoved", e)
	}
}

// onComponentAdded re-checks e against every query: it attaches e (firing
// EntityAdded) to queries it now matches, and detaches it (firing
// EntityRemoved) from queries it no longer matches because the new
// component is forbidden there. Components already queued for deferred
// removal count as absent.
func (qi *QueryIndex) onComponentAdded(e Entity, meta *entityMeta) {
	have := meta.mask
	for _, p := range meta.pendingComponentRemove {
		have.unset(p)
	}
	for _, q := range qi.all {
		_, in := meta.memberships[q]
		switch {
		case in && !q.matches(have):
			qi.removeMember(q, e, meta, true)
		case !in && q.matches(have):
			qi.addMember(q, e, meta, true)
		}
	}
}

// onComponentWillRemove must run before id is cleared from meta.mask: it
// simulates the post-removal mask (also treating components already queued
// for deferred removal as absent), detaches e from queries it is about to
// stop matching and attaches it to queries it is about to start matching
// (a forbidden component going away), firing EntityRemoved/EntityAdded
// while the component is still reachable for any handler that inspects it.
func (qi *QueryIndex) onComponentWillRemove(id TypeID, e Entity, meta *entityMeta) {
	after := meta.mask
	after.unset(id)
	for _, p := range meta.pendingComponentRemove {
		after.unset(p)
	}
	for _, q := range qi.all {
		_, in := meta.memberships[q]
		switch {
		case in && !q.matches(after):
			qi.removeMember(q, e, meta, true)
		case !in && q.matches(after):
			qi.addMember(q, e, meta, true)
		}
	}
}

// onComponentChanged notifies every query e currently belongs to that
// watches TypeID id (spec §4.9 OnComponentChanged).
func (qi *QueryIndex) onComponentChanged(id TypeID, e Entity, meta *entityMeta) {
	for q := range meta.memberships {
		if q.watchesChange(id) {
			q.dispatcher.Emit("ComponentChanged", e)
		}
	}
}

// onEntityRemoved detaches e from every query it belonged to, firing
// EntityRemoved on each (spec §4.6).
func (qi *QueryIndex) onEntityRemoved(e Entity, meta *entityMeta) {
	for q := range meta.memberships {
		qi.removeMember(q, e, meta, true)
	}
}
