// Command vizlog summarizes the tick and audit logs a server wrote to its
// data directory.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"claimviz.ai/internal/sim/host"
	"claimviz.ai/internal/sim/viz"
)

func main() {
	var (
		dataDir  = flag.String("data", "./data", "server data directory")
		viewer   = flag.String("viewer", "", "print the audit trail of one viewer")
		fromTick = flag.Uint64("from_tick", 0, "ignore entries before this tick")
		toTick   = flag.Uint64("to_tick", 0, "ignore entries after this tick (0 = no limit)")
	)
	flag.Parse()

	f := filter{from: *fromTick, to: *toTick, viewer: *viewer}
	ts, err := scanTicks(filepath.Join(*dataDir, "ticks"), f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ticks:", err)
		os.Exit(1)
	}
	as, err := scanAudit(filepath.Join(*dataDir, "audit"), f, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "audit:", err)
		os.Exit(1)
	}
	ts.print(os.Stdout)
	as.print(os.Stdout)
}

type filter struct {
	from, to uint64
	viewer   string
}

func (f filter) keep(tick uint64) bool {
	return tick >= f.from && (f.to == 0 || tick <= f.to)
}

type tickStats struct {
	entries    int
	runs       int
	first      uint64
	last       uint64
	joins      int
	leaves     int
	callbacks  int
	outcomes   map[viz.Outcome]int
	errorCodes map[string]int
}

func scanTicks(dir string, f filter) (*tickStats, error) {
	st := &tickStats{outcomes: map[viz.Outcome]int{}, errorCodes: map[string]int{}}
	files, err := listLogFiles(dir, "ticks-")
	if err != nil {
		return nil, err
	}
	run := ""
	for _, path := range files {
		// Ticks restart with every server run.
		fileRun := runOf(filepath.Base(path), "ticks-")
		fresh := fileRun != run
		if fresh {
			st.runs++
			run = fileRun
		}
		err := eachLine(path, func(line []byte) error {
			var e host.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			if !f.keep(e.Tick) {
				return nil
			}
			if !fresh && e.Tick <= st.last {
				return fmt.Errorf("tick %d logged after tick %d", e.Tick, st.last)
			}
			fresh = false
			if st.entries == 0 {
				st.first = e.Tick
			}
			st.entries++
			st.last = e.Tick
			st.joins += len(e.Joins)
			st.leaves += len(e.Leaves)
			st.callbacks += e.Callbacks
			for _, v := range e.Visualize {
				st.outcomes[v.Outcome]++
				if v.Code != "" {
					st.errorCodes[v.Code]++
				}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return st, nil
}

func (st *tickStats) print(w io.Writer) {
	if st.entries == 0 {
		fmt.Fprintln(w, "ticks: none")
		return
	}
	fmt.Fprintf(w, "ticks: entries=%d runs=%d range=%d..%d joins=%d leaves=%d callbacks=%d\n",
		st.entries, st.runs, st.first, st.last, st.joins, st.leaves, st.callbacks)
	fmt.Fprintf(w, "  outcomes: %s\n", tally(st.outcomes))
	if len(st.errorCodes) > 0 {
		fmt.Fprintf(w, "  errors: %s\n", tally(st.errorCodes))
	}
}

type auditStats struct {
	entries    int
	actions    map[viz.AuditAction]int
	byProvider map[string]int
	failures   []viz.AuditEntry
}

// scanAudit tallies audit entries and prints the trail of f.viewer to trail
// as it goes.
func scanAudit(dir string, f filter, trail io.Writer) (*auditStats, error) {
	st := &auditStats{actions: map[viz.AuditAction]int{}, byProvider: map[string]int{}}
	files, err := listLogFiles(dir, "audit-")
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		err := eachLine(path, func(line []byte) error {
			var e viz.AuditEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			if !f.keep(e.Tick) {
				return nil
			}
			st.entries++
			st.actions[e.Action]++
			if e.Action == viz.AuditApply {
				st.byProvider[e.Provider]++
			}
			if e.Action == viz.AuditFail || e.Action == viz.AuditFallback {
				st.failures = append(st.failures, e)
			}
			if f.viewer != "" && e.Viewer == f.viewer {
				fmt.Fprintf(trail, "%8d %-8s %-28s world=%s anchor=%v boundaries=%d %s\n",
					e.Tick, e.Action, e.Provider, e.World, e.Anchor, e.Boundaries, e.Error)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
	}
	return st, nil
}

func (st *auditStats) print(w io.Writer) {
	if st.entries == 0 {
		fmt.Fprintln(w, "audit: none")
		return
	}
	fmt.Fprintf(w, "audit: entries=%d %s\n", st.entries, tally(st.actions))
	fmt.Fprintf(w, "  applied by provider: %s\n", tally(st.byProvider))
	for _, e := range st.failures {
		fmt.Fprintf(w, "  %s tick=%d viewer=%s provider=%s: %s\n", e.Action, e.Tick, e.Viewer, e.Provider, e.Error)
	}
}

// tally renders counts as "k=v" pairs sorted by key.
func tally[K ~string](m map[K]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[K(k)]))
	}
	return strings.Join(parts, " ")
}

// listLogFiles returns prefix*.jsonl.zst files in dir, oldest first. Segment
// names carry the run stamp and a zero padded first tick, so they sort
// lexically. A missing dir yields no files.
func listLogFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// runOf extracts the run stamp from a segment name.
func runOf(name, prefix string) string {
	rest := strings.TrimPrefix(name, prefix)
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		return rest[:i]
	}
	return rest
}

func eachLine(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		if err := fn(sc.Bytes()); err != nil {
			return err
		}
	}
	return sc.Err()
}
