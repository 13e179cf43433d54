package sqlite

import (
	"sync"

	"github.com/mesh-intelligence/crmstore/pkg/types"
)

// virtualLinkDesignator is the info area that names every virtual link.
const virtualLinkDesignator = "MB"

// virtualMovePair is a pair of info areas between which records move.
type virtualMovePair struct {
	from, to      string
	updateCRMOnly bool
}

// virtualMovePairs are the moves registered for every store. Pairs marked
// updateCRMOnly are registered only in update-CRM mode.
var virtualMovePairs = []virtualMovePair{
	{from: "MA", to: "KP"},
	{from: "MA", to: "FI"},
	{from: "MA", to: "PE", updateCRMOnly: true},
	{from: "MA", to: "CP", updateCRMOnly: true},
}

// virtualLinkTable expands the move pairs into virtual links. Each pair
// yields four entries: the move into b seen from either side, and the move
// out of b seen from either side.
func virtualLinkTable(updateCRM bool) []types.VirtualLinkInfo {
	var links []types.VirtualLinkInfo
	for _, p := range virtualMovePairs {
		if p.updateCRMOnly && !updateCRM {
			continue
		}
		links = append(links,
			types.VirtualLinkInfo{SourceInfoAreaID: p.from, TargetInfoAreaID: p.to, Move: types.MoveFromSource, DesignatorInfoAreaID: virtualLinkDesignator},
			types.VirtualLinkInfo{SourceInfoAreaID: p.to, TargetInfoAreaID: p.from, Move: types.MoveFromTarget, DesignatorInfoAreaID: virtualLinkDesignator},
			types.VirtualLinkInfo{SourceInfoAreaID: p.to, TargetInfoAreaID: p.from, Move: types.MoveFromSource, DesignatorInfoAreaID: virtualLinkDesignator},
			types.VirtualLinkInfo{SourceInfoAreaID: p.from, TargetInfoAreaID: p.to, Move: types.MoveFromTarget, DesignatorInfoAreaID: virtualLinkDesignator},
		)
	}
	return links
}

// VirtualLinkResolver maps records to their virtual info areas and virtual
// info areas back to physical ones. Its record cache is never evicted.
type VirtualLinkResolver struct {
	mu      sync.Mutex
	catalog *Catalog
	cache   map[types.RecordIdentification]string
}

func newVirtualLinkResolver(c *Catalog) *VirtualLinkResolver {
	return &VirtualLinkResolver{
		catalog: c,
		cache:   make(map[types.RecordIdentification]string),
	}
}

func (r *VirtualLinkResolver) setCatalog(c *Catalog) {
	r.mu.Lock()
	r.catalog = c
	r.mu.Unlock()
}

func (r *VirtualLinkResolver) currentCatalog() *Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.catalog
}

// RootPhysicalInfoAreaID returns the physical info area backing infoAreaID.
// A virtual info-area id resolves to the info area its records moved to;
// root info-area chains are then followed to their end.
func (r *VirtualLinkResolver) RootPhysicalInfoAreaID(infoAreaID string) string {
	c := r.currentCatalog()
	cur := infoAreaID
	for _, v := range c.virtual {
		if v.VirtualInfoAreaID() == cur {
			cur = v.MovedTo()
			break
		}
	}

	visited := make(map[string]bool)
	for !visited[cur] {
		visited[cur] = true
		t, ok := c.TableInfo(cur)
		if !ok || t.EffectiveRootInfoAreaID() == cur {
			return cur
		}
		cur = t.EffectiveRootInfoAreaID()
	}
	return cur
}

// VirtualInfoAreaIDForRecord returns the info area a record is grouped
// under: the table override, then the cache, then its own info area.
func (r *VirtualLinkResolver) VirtualInfoAreaIDForRecord(rid types.RecordIdentification) string {
	if v, ok := r.currentCatalog().virtualOverride(rid); ok && v != "" {
		return v
	}

	r.mu.Lock()
	v, ok := r.cache[rid]
	r.mu.Unlock()
	if ok {
		return v
	}
	return rid.InfoAreaID
}

// RegisterMove records that rid moved from movedFromInfoAreaID and returns
// the virtual info-area id it is grouped under. It returns false when no
// virtual link describes the move.
func (r *VirtualLinkResolver) RegisterMove(rid types.RecordIdentification, movedFromInfoAreaID string) (string, bool) {
	link, ok := r.linkForMove(movedFromInfoAreaID, r.RootPhysicalInfoAreaID(rid.InfoAreaID))
	if !ok {
		return "", false
	}
	id := link.VirtualInfoAreaID()

	r.mu.Lock()
	r.cache[rid] = id
	r.mu.Unlock()
	return id, true
}

// VirtualLinksBetween returns the virtual links declared from source to target.
func (r *VirtualLinkResolver) VirtualLinksBetween(sourceInfoAreaID, targetInfoAreaID string) []types.VirtualLinkInfo {
	var out []types.VirtualLinkInfo
	for _, v := range r.currentCatalog().virtual {
		if v.SourceInfoAreaID == sourceInfoAreaID && v.TargetInfoAreaID == targetInfoAreaID {
			out = append(out, v)
		}
	}
	return out
}

func (r *VirtualLinkResolver) linkForMove(from, to string) (types.VirtualLinkInfo, bool) {
	for _, v := range r.currentCatalog().virtual {
		if v.MovedFrom() == from && v.MovedTo() == to {
			return v, true
		}
	}
	return types.VirtualLinkInfo{}, false
}
