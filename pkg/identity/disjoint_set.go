package identity

// disjointSet is a union-find over dense integer elements with path compression and union by size
type disjointSet struct {
	parent []int
	size   []int
}

func newDisjointSet(capacity int) *disjointSet {
	return &disjointSet{
		parent: make([]int, 0, capacity),
		size:   make([]int, 0, capacity),
	}
}

// add creates a new singleton element and returns its id
func (d *disjointSet) add() int {
	id := len(d.parent)
	d.parent = append(d.parent, id)
	d.size = append(d.size, 1)
	return id
}

func (d *disjointSet) find(x int) int {
	root := x
	for d.parent[root] != root {
		root = d.parent[root]
	}
	// Compress the path so later finds are O(1)
	for d.parent[x] != root {
		next := d.parent[x]
		d.parent[x] = root
		x = next
	}
	return root
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}

func (d *disjointSet) len() int {
	return len(d.parent)
}
