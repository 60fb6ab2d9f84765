package charclass

// ByteClasses maps each byte value to an equivalence class such that
// bytes in the same class are indistinguishable to every Set it was built
// from. Automata index transition tables by class rather than by byte,
// which usually shrinks 256 columns to a handful.
type ByteClasses struct {
	classes [256]byte
	n       int
}

// Get returns the class of b.
func (bc *ByteClasses) Get(b byte) byte { return bc.classes[b] }

// Len returns the number of classes.
func (bc *ByteClasses) Len() int { return bc.n }

// Table returns the raw mapping, used when encoding automata.
func (bc *ByteClasses) Table() [256]byte { return bc.classes }

// FromTable rebuilds byte classes from an encoded mapping.
func FromTable(t [256]byte) ByteClasses {
	bc := ByteClasses{classes: t}
	for _, c := range t {
		if int(c)+1 > bc.n {
			bc.n = int(c) + 1
		}
	}
	return bc
}

// Representatives returns one byte per class, in class order.
func (bc *ByteClasses) Representatives() []byte {
	reps := make([]byte, bc.n)
	seen := make([]bool, bc.n)
	for b := 0; b < 256; b++ {
		c := bc.classes[b]
		if !seen[c] {
			seen[c] = true
			reps[c] = byte(b)
		}
	}
	return reps
}

// Builder accumulates sets and refines the byte partition so that every
// added set is a union of classes.
type Builder struct {
	sets []Set
}

// Add refines the partition with s.
func (b *Builder) Add(s Set) { b.sets = append(b.sets, s) }

// Build computes the classes. Two bytes share a class when they are members
// of exactly the same added sets; classes are numbered in order of their
// smallest byte.
func (b *Builder) Build() ByteClasses {
	var bc ByteClasses
	// Signature of a byte: which sets contain it. Sets are hashed
	// incrementally into a refinement of the previous partition.
	var part [256]int
	next := 1
	for _, s := range b.sets {
		remap := make(map[[2]int]int)
		for c := 0; c < 256; c++ {
			in := 0
			if s.Test(byte(c)) {
				in = 1
			}
			key := [2]int{part[c], in}
			id, ok := remap[key]
			if !ok {
				id = next
				next++
				remap[key] = id
			}
			part[c] = id
		}
	}
	ids := make(map[int]byte)
	for c := 0; c < 256; c++ {
		id, ok := ids[part[c]]
		if !ok {
			id = byte(len(ids))
			ids[part[c]] = id
		}
		bc.classes[c] = id
	}
	bc.n = len(ids)
	return bc
}
