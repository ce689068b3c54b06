package cluster

import (
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/scene-analytics/internal/config"
	"github.com/banshee-data/scene-analytics/internal/metrics"
)

// maxArchive is the bounded archive capacity; the oldest entry is evicted
// once full.
const maxArchive = 50

// Memory is the indexed, id-only store of tracked clusters. It never holds
// back-pointers between clusters: every lookup other than Get walks a list
// or set of ids. Scenes have a dedicated id index; ByCategory and ByState
// scan the insertion-order id list, as there is no category or state index.
type Memory struct {
	mu sync.RWMutex

	clusters map[string]*TrackedCluster
	byScene  map[string]map[string]struct{} // sceneID -> set of cluster ids
	order    []string                       // insertion order, for deterministic iteration

	archive     []*TrackedCluster
	archiveByID map[string]int // id -> index into archive
}

// NewMemory constructs an empty cluster store.
func NewMemory() *Memory {
	return &Memory{
		clusters:    make(map[string]*TrackedCluster),
		byScene:     make(map[string]map[string]struct{}),
		archiveByID: make(map[string]int),
	}
}

// Add registers a newly created cluster.
func (m *Memory) Add(c *TrackedCluster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.clusters[c.ID]; !exists {
		m.order = append(m.order, c.ID)
	}
	m.clusters[c.ID] = c
	if m.byScene[c.SceneID] == nil {
		m.byScene[c.SceneID] = make(map[string]struct{})
	}
	m.byScene[c.SceneID][c.ID] = struct{}{}
}

// Get returns the live cluster with the given id, or nil if it is not
// present (it may be archived, or may never have existed).
func (m *Memory) Get(id string) *TrackedCluster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clusters[id]
}

// ByScene returns every live cluster for a scene, ordered by id for
// deterministic iteration.
func (m *Memory) ByScene(sceneID string) []*TrackedCluster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.byScene[sceneID]
	out := make([]*TrackedCluster, 0, len(ids))
	for id := range ids {
		out = append(out, m.clusters[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByCategory returns live clusters for a scene filtered by category. An
// empty sceneID matches every scene.
func (m *Memory) ByCategory(sceneID, category string) []*TrackedCluster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*TrackedCluster
	for _, id := range m.order {
		c, ok := m.clusters[id]
		if !ok {
			continue
		}
		if sceneID != "" && c.SceneID != sceneID {
			continue
		}
		if c.Category == category {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByState returns every live cluster across all scenes in the given state.
func (m *Memory) ByState(state ClusterState) []*TrackedCluster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*TrackedCluster
	for _, id := range m.order {
		if c, ok := m.clusters[id]; ok && c.State == state {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Archive moves a cluster from the live store to the bounded archive,
// evicting the oldest-by-LastSeen archive entry once at capacity.
func (m *Memory) Archive(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clusters[id]
	if !ok {
		return
	}
	delete(m.clusters, id)
	if scene, ok := m.byScene[c.SceneID]; ok {
		delete(scene, id)
	}
	m.removeFromOrder(id)

	if len(m.archive) >= maxArchive {
		oldestIdx := 0
		for i, a := range m.archive {
			if a.LastSeen.Before(m.archive[oldestIdx].LastSeen) {
				oldestIdx = i
			}
		}
		delete(m.archiveByID, m.archive[oldestIdx].ID)
		m.archive = append(m.archive[:oldestIdx], m.archive[oldestIdx+1:]...)
		m.reindexArchive()
	}
	m.archiveByID[id] = len(m.archive)
	m.archive = append(m.archive, c)
}

func (m *Memory) removeFromOrder(id string) {
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *Memory) reindexArchive() {
	for i, a := range m.archive {
		m.archiveByID[a.ID] = i
	}
}

// ForceClearByCategory archives every live cluster for a scene+category
// immediately. The listener installed by WireParamInvalidation calls this in
// response to a ParamStore invalidation event.
func (m *Memory) ForceClearByCategory(sceneID, category string) {
	for _, c := range m.ByCategory(sceneID, category) {
		c.State = StateLost
		m.Archive(c.ID)
	}
}

// CleanupOld archives every live LOST cluster whose time since last seen
// exceeds the configured archival threshold. Runs exactly once per
// processed message.
func (m *Memory) CleanupOld(now time.Time, thresholdSeconds float64) {
	for _, c := range m.ByState(StateLost) {
		if now.Sub(c.LastSeen).Seconds() > thresholdSeconds {
			m.Archive(c.ID)
		}
	}
}

// WireParamInvalidation subscribes this store to a ParamStore's significant
// parameter-change events, force-archiving the affected scene+category.
// Call once per (Memory, ParamStore) pair at startup.
func WireParamInvalidation(params *config.ParamStore, mem *Memory) {
	params.OnInvalidation(func(ev config.InvalidationEvent) {
		metrics.ParamInvalidations.WithLabelValues(ev.SceneID, ev.Category).Inc()
		mem.ForceClearByCategory(ev.SceneID, ev.Category)
	})
}

// Statistics summarizes the live store for diagnostics/metrics export.
type Statistics struct {
	Live        int
	Archived    int
	ByState     map[ClusterState]int
	ByCategory  map[string]int
}

// Statistics computes a snapshot count breakdown of the live store.
func (m *Memory) Statistics() Statistics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := Statistics{
		ByState:    make(map[ClusterState]int),
		ByCategory: make(map[string]int),
	}
	for _, id := range m.order {
		c, ok := m.clusters[id]
		if !ok {
			continue
		}
		stats.Live++
		stats.ByState[c.State]++
		stats.ByCategory[c.Category]++
	}
	stats.Archived = len(m.archive)
	return stats
}
