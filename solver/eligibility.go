package solver

// admits reports whether class k can take the students in while the students
// in out leave it at the same time. Strict mode also refuses a second holder
// of the same dissociation code; only conflict resolution runs without it.
func (st *state) admits(k int, in, out []int, strict bool) bool {
	c := &st.classes[k]
	if st.size[k]-len(out)+len(in) > c.Max {
		return false
	}
	for _, s := range in {
		if !st.allowed[s][k] {
			return false
		}
		for _, key := range st.keys[s] {
			quota, ok := c.Quotas[key]
			if !ok {
				continue
			}
			if st.keyCount[k][key]+st.withKey(in, key)-st.withKey(out, key) > quota {
				return false
			}
		}
		if strict {
			code := st.students[s].Dissociation
			if code != "" && st.dissoc[k][code]+st.withCode(in, code)-st.withCode(out, code) > 1 {
				return false
			}
		}
	}
	return true
}

func (st *state) canPlace(s, k int) bool {
	return st.admits(k, []int{s}, nil, true)
}

// canSwap checks both directions of an exchange between s and t.
func (st *state) canSwap(s, t int) bool {
	a, b := st.assign[s], st.assign[t]
	return a != b &&
		st.admits(b, []int{s}, []int{t}, true) &&
		st.admits(a, []int{t}, []int{s}, true)
}

func (st *state) withKey(students []int, key OptionKey) int {
	n := 0
	for _, s := range students {
		for _, k := range st.keys[s] {
			if k == key {
				n++
			}
		}
	}
	return n
}

func (st *state) withCode(students []int, code DissociationCode) int {
	n := 0
	for _, s := range students {
		if st.students[s].Dissociation == code {
			n++
		}
	}
	return n
}
