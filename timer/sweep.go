package timer

// Sweeper 生命周期清理. 两种清理都在Store的一次加锁内完成,
// 返回被摘除的定时器, 资源由调用方释放.
type Sweeper struct {
	store *Store
}

func NewSweeper(store *Store) *Sweeper {
	return &Sweeper{store: store}
}

// EnvironmentReset 删除带FlagNoCarryOver的定时器, 其余保持计时
func (w *Sweeper) EnvironmentReset() []Record {
	return w.store.RemoveWhere(func(r *Record) bool {
		return r.Flags.Has(FlagNoCarryOver)
	})
}

// OwnerUnload 删除owner注册的全部定时器, 不看标记
func (w *Sweeper) OwnerUnload(owner Owner) []Record {
	return w.store.RemoveWhere(func(r *Record) bool {
		return r.Owner == owner
	})
}
