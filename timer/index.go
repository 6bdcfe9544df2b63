package timer

import "slices"

// ChannelIndex channel到id集合的映射, 只由Store在同一临界区内维护
type ChannelIndex struct {
	chans map[int32]map[int64]struct{}
}

func newChannelIndex() *ChannelIndex {
	return &ChannelIndex{chans: make(map[int32]map[int64]struct{})}
}

func (x *ChannelIndex) add(ch int32, id int64) {
	if ch == 0 {
		return
	}
	set := x.chans[ch]
	if set == nil {
		set = make(map[int64]struct{})
		x.chans[ch] = set
	}
	set[id] = struct{}{}
}

func (x *ChannelIndex) remove(ch int32, id int64) {
	set, ok := x.chans[ch]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(x.chans, ch)
	}
}

func (x *ChannelIndex) clear() {
	x.chans = make(map[int32]map[int64]struct{})
}

// ids 升序, 调用方持锁
func (x *ChannelIndex) ids(ch int32) []int64 {
	set := x.chans[ch]
	if len(set) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (x *ChannelIndex) size(ch int32) int {
	return len(x.chans[ch])
}

func (x *ChannelIndex) channels() []int32 {
	chs := make([]int32, 0, len(x.chans))
	for ch := range x.chans {
		chs = append(chs, ch)
	}
	slices.Sort(chs)
	return chs
}
