package value

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// internTable is the process-global Symbol interning table (§3.1). Backed
// by an LRU so a long-running engine doesn't grow the table unboundedly
// under a workload that mints many one-off symbols (e.g. per-connection
// callback names); frequently used symbols (table names, column names)
// stay resident under normal access patterns.
var (
	internOnce  sync.Once
	internCache *lru.Cache[string, string]
)

const internCapacity = 1 << 20

func internTable() *lru.Cache[string, string] {
	internOnce.Do(func() {
		c, err := lru.New[string, string](internCapacity)
		if err != nil {
			panic(err) // only fails for a non-positive capacity
		}
		internCache = c
	})
	return internCache
}

// Intern returns the canonical string for s, sharing storage across equal
// symbols the way the source language's symbol table does (§3.1: "share a
// process-global interning table").
func Intern(s string) string {
	t := internTable()
	if v, ok := t.Get(s); ok {
		return v
	}
	t.Add(s, s)
	return s
}

// InternSymbol interns and wraps as a Symbol value.
func InternSymbol(s string) Symbol { return Symbol(Intern(s)) }
