package constraint

// Island is a maximal connected component of constraints whose super-bodies
// overlap (spec.md glossary: "Island"). Islands are independent LCP
// subproblems and may be solved without reference to one another.
type Island struct {
	SuperBodies []superBody
	Constraints []Unilateral
}

// unionFind is a minimal path-compressed, union-by-rank disjoint-set over a
// dynamically discovered key set, grounded on box2d's b2Island-building BFS
// (box2d walks contact edges breadth-first over bodies; this expresses the
// same "connected via shared constraint incidence" idea as a classic
// union-find, better suited to super-bodies touched by more than one
// constraint kind at once).
type unionFind struct {
	parent map[superBody]superBody
	rank   map[superBody]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[superBody]superBody{}, rank: map[superBody]int{}}
}

func (u *unionFind) find(x superBody) superBody {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	if u.parent[x] != x {
		u.parent[x] = u.find(u.parent[x])
	}
	return u.parent[x]
}

func (u *unionFind) union(a, b superBody) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// Partition groups constraints into islands by connected super-body
// incidence: two constraints that share a super-body land in the same
// island, transitively.
func Partition(constraints []Unilateral, lookup Lookup) []Island {
	uf := newUnionFind()
	touched := make([][]superBody, len(constraints))
	for i, c := range constraints {
		sbs := sortedUnique(superBodies(c, lookup))
		touched[i] = sbs
		for _, sb := range sbs {
			uf.find(sb) // register
		}
		for k := 1; k < len(sbs); k++ {
			uf.union(sbs[0], sbs[k])
		}
	}

	byRoot := map[superBody]*Island{}
	var order []superBody
	for i, c := range constraints {
		if len(touched[i]) == 0 {
			continue // constraint touches no resolvable body; nothing to solve
		}
		root := uf.find(touched[i][0])
		isl, ok := byRoot[root]
		if !ok {
			isl = &Island{}
			byRoot[root] = isl
			order = append(order, root)
		}
		isl.Constraints = append(isl.Constraints, c)
		for _, sb := range touched[i] {
			if !containsSuperBody(isl.SuperBodies, sb) {
				isl.SuperBodies = append(isl.SuperBodies, sb)
			}
		}
	}

	out := make([]Island, 0, len(order))
	for _, root := range order {
		isl := byRoot[root]
		isl.SuperBodies = sortedUnique(isl.SuperBodies)
		out = append(out, *isl)
	}
	return out
}

func containsSuperBody(sbs []superBody, sb superBody) bool {
	for _, x := range sbs {
		if x == sb {
			return true
		}
	}
	return false
}
