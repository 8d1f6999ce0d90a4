package inconsistency

import (
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/indexverify/datum"
)

// CollectingReporter keeps every reported object in memory.
type CollectingReporter struct {
	mu      sync.Mutex
	objects []ReportableObject
	closed  bool
}

func (c *CollectingReporter) Report(obj ReportableObject) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = append(c.objects, obj)
}

func (c *CollectingReporter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Objects returns everything reported so far, in order.
func (c *CollectingReporter) Objects() []ReportableObject {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ReportableObject(nil), c.objects...)
}

// Findings returns the reported findings, in order.
func (c *CollectingReporter) Findings() []Finding {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ret []Finding
	for _, obj := range c.objects {
		if f, ok := obj.(Finding); ok {
			ret = append(ret, f)
		}
	}
	return ret
}

func (c *CollectingReporter) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SortingReporter holds findings back until Close, then forwards them
// ordered by table and key. Anything that is not a finding is forwarded
// immediately. It suits modes whose findings arrive in no particular order.
type SortingReporter struct {
	Reporter Reporter

	mu       sync.Mutex
	findings []Finding
}

func (s *SortingReporter) Report(obj ReportableObject) {
	f, ok := obj.(Finding)
	if !ok {
		s.Reporter.Report(obj)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings = append(s.findings, f)
}

func (s *SortingReporter) Close() {
	s.mu.Lock()
	findings := s.findings
	s.findings = nil
	s.mu.Unlock()

	SortFindings(findings)
	for _, f := range findings {
		s.Reporter.Report(f)
	}
	s.Reporter.Close()
}

// SortFindings orders findings by table, then parent key, then key.
// Findings of one row keep their relative order.
func SortFindings(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if c := a.TableName().Compare(b.TableName()); c != 0 {
			return c < 0
		}
		if c := compareParents(a.ParentKey(), b.ParentKey()); c != 0 {
			return c < 0
		}
		if c := compareKeys(a.Key(), b.Key()); c != 0 {
			return c < 0
		}
		return false
	})
}

func compareParents(a, b *ParentKey) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c := a.Name.Compare(b.Name); c != 0 {
		return c
	}
	return compareKeys(a.KeyValues, b.KeyValues)
}

func compareKeys(a, b []any) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		c, err := datum.Compare(a[i], b[i])
		if err != nil {
			c = strings.Compare(datum.Format(a[i]), datum.Format(b[i]))
		}
		if c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}
