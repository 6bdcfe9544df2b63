package timer

import (
	"sync"
)

type call struct {
	hook     Hook
	owner    Owner
	userData int32
}

// recorder 记录回调和资源释放
type recorder struct {
	mu       sync.Mutex
	calls    []call
	released []int32
	verdict  func(c call) (Verdict, error)
	failOn   map[int32]error
}

func newRecorder(v Verdict) *recorder {
	return &recorder{
		verdict: func(call) (Verdict, error) { return v, nil },
		failOn:  map[int32]error{},
	}
}

func (r *recorder) Invoke(hook Hook, owner Owner, userData int32) (Verdict, error) {
	c := call{hook: hook, owner: owner, userData: userData}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	verdict := r.verdict
	r.mu.Unlock()
	return verdict(c)
}

func (r *recorder) Release(owner Owner, userData int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failOn[userData]; ok {
		return err
	}
	r.released = append(r.released, userData)
	return nil
}

func (r *recorder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) hooks() []Hook {
	r.mu.Lock()
	defer r.mu.Unlock()
	hooks := make([]Hook, 0, len(r.calls))
	for _, c := range r.calls {
		hooks = append(hooks, c.hook)
	}
	return hooks
}

func (r *recorder) releasedCount(userData int32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.released {
		if v == userData {
			n++
		}
	}
	return n
}

func ids(records []Record) []int64 {
	out := make([]int64, 0, len(records))
	for _, r := range records {
		out = append(out, r.Id)
	}
	return out
}
