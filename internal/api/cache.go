package api

import (
	"container/list"
	"strconv"
	"sync"
	"time"

	"parcel-api/internal/parcel"
)

// 文档注释：点查询本地 LRU 缓存（代号 + 精确坐标为键）
// 背景：热点坐标在短周期内重复查询，进程内缓存可省去索引检索与点面判定；TTL 可调。
// 约束：键不做量化，仅完全相同的坐标命中；代号进入键，重载后旧条目自然失效。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
}

type kv struct {
	k   string
	v   []*parcel.Record
	exp time.Time
}

func NewLRU(capacity int, ttlSec int) *LRU {
	if capacity <= 0 {
		capacity = 1
	}
	return &LRU{cap: capacity, ttl: time.Duration(ttlSec) * time.Second, lst: list.New(), dict: make(map[string]*list.Element)}
}

func pointKey(gen int64, lat, lon float64) string {
	return strconv.FormatInt(gen, 10) + ":" + strconv.FormatFloat(lat, 'g', -1, 64) + ":" + strconv.FormatFloat(lon, 'g', -1, 64)
}

func (c *LRU) Get(k string) ([]*parcel.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(kv)
		if time.Now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return nil, false
}

func (c *LRU) Set(k string, v []*parcel.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		e.Value = kv{k: k, v: v, exp: time.Now().Add(c.ttl)}
		c.lst.MoveToFront(e)
		return
	}
	e := c.lst.PushFront(kv{k: k, v: v, exp: time.Now().Add(c.ttl)})
	c.dict[k] = e
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back != nil {
			it := back.Value.(kv)
			delete(c.dict, it.k)
			c.lst.Remove(back)
		}
	}
}

// Len 当前条目数（含未清理的过期项）
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
