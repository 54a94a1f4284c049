package resources

import (
	"fmt"

	"github.com/spaghettifunk/anima-core/engine/core"
	"github.com/spaghettifunk/anima-core/engine/math"
)

// Skeleton owns its bones in a flat array indexed by bone index. Bones are never
// moved once the skeleton is built.
type Skeleton struct {
	Bones []Bone
	// RootTransform is the space root bones are expressed relative to.
	RootTransform math.Mat4
	// GlobalInverseTransform is applied last to every skin matrix.
	GlobalInverseTransform math.Mat4

	roots  []int
	order  []int
	byName map[string]int
}

// NewSkeleton validates the hierarchy and computes the local bind components.
// Indices must cover 0..n-1 exactly once and the parent links must form a forest.
func NewSkeleton(bones []BoneConfig, rootTransform, globalInverse math.Mat4) (*Skeleton, error) {
	n := len(bones)
	s := &Skeleton{
		Bones:                  make([]Bone, n),
		RootTransform:          rootTransform,
		GlobalInverseTransform: globalInverse,
		byName:                 make(map[string]int, n),
	}

	seen := make([]bool, n)
	for _, bc := range bones {
		if bc.Index < 0 || bc.Index >= n {
			return nil, fmt.Errorf("%w: bone '%s' has index %d, skeleton has %d bones", core.ErrOutOfBounds, bc.Name, bc.Index, n)
		}
		if seen[bc.Index] {
			return nil, fmt.Errorf("%w: %d ('%s')", core.ErrDuplicateBoneIndex, bc.Index, bc.Name)
		}
		seen[bc.Index] = true
		if bc.Parent != NoParent && (bc.Parent < 0 || bc.Parent >= n) {
			return nil, fmt.Errorf("%w: bone '%s' references parent %d", core.ErrInvalidParent, bc.Name, bc.Parent)
		}

		b := Bone{
			Index:  bc.Index,
			Parent: bc.Parent,
			Name:   bc.Name,
			Bind:   bc.Bind,
		}
		if bc.Offset != nil {
			b.Offset = *bc.Offset
			b.offsetSupplied = true
		}
		s.Bones[bc.Index] = b
		if bc.Name != "" {
			if _, ok := s.byName[bc.Name]; !ok {
				s.byName[bc.Name] = bc.Index
			}
		}
	}

	if err := s.checkCycles(); err != nil {
		return nil, err
	}

	for i := range s.Bones {
		if p := s.Bones[i].Parent; p == NoParent {
			s.roots = append(s.roots, i)
		} else {
			s.Bones[p].Children = append(s.Bones[p].Children, i)
		}
	}

	// breadth first from the roots, parents always precede their children
	s.order = make([]int, 0, n)
	s.order = append(s.order, s.roots...)
	for i := 0; i < len(s.order); i++ {
		s.order = append(s.order, s.Bones[s.order[i]].Children...)
	}

	s.CalculateLocalBindComponents()
	return s, nil
}

func (s *Skeleton) checkCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]uint8, len(s.Bones))
	for i := range s.Bones {
		// walk up until a root or an already validated bone
		var path []int
		for cur := i; cur != NoParent && state[cur] != done; cur = s.Bones[cur].Parent {
			if state[cur] == visiting {
				return fmt.Errorf("%w: bone '%s' (%d) is its own ancestor", core.ErrCyclicHierarchy, s.Bones[cur].Name, cur)
			}
			state[cur] = visiting
			path = append(path, cur)
		}
		for _, p := range path {
			state[p] = done
		}
	}
	return nil
}

// CalculateLocalBindComponents derives the offset matrix of every bone that was
// not given one, and splits the bind pose relative to the parent into scale,
// rotation and translation. Shear is discarded.
func (s *Skeleton) CalculateLocalBindComponents() {
	rootInverse := s.RootTransform.Inverse()
	for i := range s.Bones {
		b := &s.Bones[i]
		if !b.offsetSupplied {
			b.Offset = b.Bind.Inverse()
		}

		parentInverse := rootInverse
		if b.Parent != NoParent {
			parentInverse = s.Bones[b.Parent].Bind.Inverse()
		}
		b.LocalBind = math.TransformFromMat4(parentInverse.Mul(b.Bind))
	}
}

func (s *Skeleton) Len() int {
	return len(s.Bones)
}

// Roots returns the indices of the bones without a parent.
func (s *Skeleton) Roots() []int {
	out := make([]int, len(s.roots))
	copy(out, s.roots)
	return out
}

// Order returns every bone index with parents ahead of their children.
func (s *Skeleton) Order() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// BoneByName returns the first bone registered under name.
func (s *Skeleton) BoneByName(name string) (*Bone, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return &s.Bones[i], true
}
